package calculator

import (
	"fmt"
	"math/big"
	"strings"
)

// Expr is a node of the expression tree. The set of implementations is closed.
type Expr interface {
	fmt.Stringer
	isExpr()
}

type Int struct {
	Value *big.Int
}

type Binary struct {
	LHS Expr
	Op  BinaryOp
	RHS Expr
}

type Unary struct {
	Op UnaryOp
	X  Expr
}

type Paren struct {
	X Expr
}

type Variable struct {
	Name string
}

type Call struct {
	Name string
	Args []Expr
}

func (Int) isExpr()      {}
func (Binary) isExpr()   {}
func (Unary) isExpr()    {}
func (Paren) isExpr()    {}
func (Variable) isExpr() {}
func (Call) isExpr()     {}

func (e Int) String() string { return e.Value.String() }

func (e Binary) String() string {
	return fmt.Sprintf("%s %s %s", e.LHS, e.Op.Symbol(), e.RHS)
}

func (e Unary) String() string { return e.Op.Symbol() + e.X.String() }

func (e Paren) String() string { return "(" + e.X.String() + ")" }

func (e Variable) String() string { return e.Name }

func (e Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

// Debug renders the tree structure of e, e.g. Binary(Int(1), Add, Int(2)).
func Debug(e Expr) string {
	var sb strings.Builder
	writeDebug(&sb, e)
	return sb.String()
}

func writeDebug(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Int:
		fmt.Fprintf(sb, "Int(%s)", n.Value)
	case Binary:
		sb.WriteString("Binary(")
		writeDebug(sb, n.LHS)
		fmt.Fprintf(sb, ", %s, ", n.Op)
		writeDebug(sb, n.RHS)
		sb.WriteString(")")
	case Unary:
		fmt.Fprintf(sb, "Unary(%s, ", n.Op)
		writeDebug(sb, n.X)
		sb.WriteString(")")
	case Paren:
		sb.WriteString("Paren(")
		writeDebug(sb, n.X)
		sb.WriteString(")")
	case Variable:
		fmt.Fprintf(sb, "Variable(%q)", n.Name)
	case Call:
		fmt.Fprintf(sb, "Call(%q, [", n.Name)
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDebug(sb, a)
		}
		sb.WriteString("])")
	default:
		fmt.Fprintf(sb, "%T", e)
	}
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Rem
	Pow
	Assign
)

var binaryOps = [...]struct {
	name, symbol string
	precedence   Precedence
}{
	Add:    {"Add", "+", PrecAdditive},
	Sub:    {"Sub", "-", PrecAdditive},
	Mul:    {"Mul", "*", PrecMultiplicative},
	Div:    {"Div", "/", PrecMultiplicative},
	Rem:    {"Rem", "%", PrecMultiplicative},
	Pow:    {"Pow", "**", PrecExponent},
	Assign: {"Assign", "=", PrecAssign},
}

func (op BinaryOp) String() string { return binaryOps[op].name }

func (op BinaryOp) Symbol() string { return binaryOps[op].symbol }

func (op BinaryOp) Precedence() Precedence { return binaryOps[op].precedence }

// RightAssociative reports whether a chain of op groups from the right.
func (op BinaryOp) RightAssociative() bool {
	return op == Pow || op == Assign
}

func binaryOpFor(kind TokenKind) (BinaryOp, bool) {
	switch kind {
	case Plus:
		return Add, true
	case Minus:
		return Sub, true
	case Ast:
		return Mul, true
	case Slash:
		return Div, true
	case Percent:
		return Rem, true
	case AstAst:
		return Pow, true
	case Equal:
		return Assign, true
	}
	return 0, false
}

// Precedence orders binary operators; higher binds tighter.
type Precedence int

const (
	PrecAny Precedence = iota
	PrecAssign
	PrecAdditive
	PrecMultiplicative
	PrecExponent
)

type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
)

func (op UnaryOp) String() string {
	if op == UnaryMinus {
		return "Minus"
	}
	return "Plus"
}

func (op UnaryOp) Symbol() string {
	if op == UnaryMinus {
		return "-"
	}
	return "+"
}
