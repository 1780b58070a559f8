package calculator

import (
	"fmt"
	"math/big"
)

// Eval evaluates e in env. Assignments performed before a failure stay bound.
func Eval(e Expr, env *Environment) (*big.Int, error) {
	switch n := e.(type) {
	case Int:
		return new(big.Int).Set(n.Value), nil
	case Paren:
		return Eval(n.X, env)
	case Variable:
		return env.Get(n.Name)
	case Unary:
		x, err := Eval(n.X, env)
		if err != nil {
			return nil, err
		}
		if n.Op == UnaryMinus {
			x.Neg(x)
		}
		return x, nil
	case Binary:
		if n.Op == Assign {
			return evalAssign(n, env)
		}
		l, err := Eval(n.LHS, env)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.RHS, env)
		if err != nil {
			return nil, err
		}
		return applyBinary(env, n.Op, l, r)
	case Call:
		return evalCall(n, env)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

// EvalString parses and evaluates input in env.
func EvalString(input string, env *Environment) (*big.Int, error) {
	e, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Eval(e, env)
}

func evalAssign(n Binary, env *Environment) (*big.Int, error) {
	r, err := Eval(n.RHS, env)
	if err != nil {
		return nil, err
	}
	v, ok := n.LHS.(Variable)
	if !ok {
		return nil, evalErrorFor("", ErrUnableToAssign)
	}
	env.Set(v.Name, r)
	return r, nil
}

func applyBinary(env *Environment, op BinaryOp, l, r *big.Int) (*big.Int, error) {
	switch op {
	case Add:
		return l.Add(l, r), nil
	case Sub:
		return l.Sub(l, r), nil
	case Mul:
		if env.MaxResultBits > 0 && l.Sign() != 0 && r.Sign() != 0 &&
			uint64(l.BitLen()+r.BitLen()-1) > env.MaxResultBits {
			return nil, evalErrorFor("", ErrResultTooLarge)
		}
		return l.Mul(l, r), nil
	case Div:
		if r.Sign() == 0 {
			return nil, evalErrorFor("", ErrDivideByZero)
		}
		// Quo truncates toward zero.
		return l.Quo(l, r), nil
	case Rem:
		if r.Sign() == 0 {
			return nil, evalErrorFor("", ErrDivideByZero)
		}
		return l.Rem(l, r), nil
	case Pow:
		return power(env, l, r)
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func power(env *Environment, base, exp *big.Int) (*big.Int, error) {
	if exp.Sign() < 0 {
		return nil, evalErrorFor("", ErrNegativePower)
	}
	switch {
	case base.Sign() == 0:
		if exp.Sign() == 0 {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case base.CmpAbs(big.NewInt(1)) == 0:
		if base.Sign() < 0 && exp.Bit(0) == 1 {
			return big.NewInt(-1), nil
		}
		return big.NewInt(1), nil
	}
	if env.MaxResultBits > 0 {
		if !exp.IsUint64() || exp.Uint64() > env.MaxResultBits {
			return nil, evalErrorFor("", ErrExponentTooLarge)
		}
		if uint64(base.BitLen()-1)*exp.Uint64() > env.MaxResultBits {
			return nil, evalErrorFor("", ErrExponentTooLarge)
		}
	}
	return new(big.Int).Exp(base, exp, nil), nil
}

func evalCall(n Call, env *Environment) (*big.Int, error) {
	fn, err := env.lookup(n.Name)
	if err != nil {
		return nil, err
	}
	if !fn.accepts(len(n.Args)) {
		return nil, evalErrorFor(n.Name, ErrInvalidArgumentLength)
	}
	args := make([]*big.Int, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn.Call(env, args)
}
