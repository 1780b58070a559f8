package calculator

import (
	"math/big"
)

var builtins = map[string]Function{
	"pow": {MinArgs: 2, MaxArgs: 2, Call: func(env *Environment, args []*big.Int) (*big.Int, error) {
		return power(env, args[0], args[1])
	}},
	"abs": {MinArgs: 1, MaxArgs: 1, Call: func(_ *Environment, args []*big.Int) (*big.Int, error) {
		return args[0].Abs(args[0]), nil
	}},
	"min": {MinArgs: 1, MaxArgs: -1, Call: func(_ *Environment, args []*big.Int) (*big.Int, error) {
		return pick(args, -1), nil
	}},
	"max": {MinArgs: 1, MaxArgs: -1, Call: func(_ *Environment, args []*big.Int) (*big.Int, error) {
		return pick(args, 1), nil
	}},
	"gcd": {MinArgs: 2, MaxArgs: 2, Call: func(_ *Environment, args []*big.Int) (*big.Int, error) {
		a := new(big.Int).Abs(args[0])
		b := new(big.Int).Abs(args[1])
		return new(big.Int).GCD(nil, nil, a, b), nil
	}},
	"sqrt": {MinArgs: 1, MaxArgs: 1, Call: func(_ *Environment, args []*big.Int) (*big.Int, error) {
		if args[0].Sign() < 0 {
			return nil, evalErrorFor("sqrt", ErrNegativeRoot)
		}
		return new(big.Int).Sqrt(args[0]), nil
	}},
}

// pick returns the smallest (want < 0) or largest (want > 0) of args.
func pick(args []*big.Int, want int) *big.Int {
	best := args[0]
	for _, a := range args[1:] {
		if a.Cmp(best) == want {
			best = a
		}
	}
	return new(big.Int).Set(best)
}
