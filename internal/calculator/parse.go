package calculator

import (
	"math/big"
)

// Parse parses a single expression. The whole input must be consumed.
func Parse(input string) (Expr, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	ts := &tokenStream{tokens: tokens, end: len(input)}
	expr, err := parseExpr(ts)
	if err != nil {
		return nil, err
	}
	if err := ts.eof(); err != nil {
		return nil, err
	}
	return expr, nil
}

func parseExpr(ts *tokenStream) (Expr, error) {
	lhs, err := parseUnary(ts)
	if err != nil {
		return nil, err
	}
	return parseRExpr(ts, lhs, PrecAny)
}

// peekBinary returns the binary operator at the head of the stream, if any.
func peekBinary(ts *tokenStream) (BinaryOp, bool) {
	tok, err := ts.peek()
	if err != nil {
		return 0, false
	}
	return binaryOpFor(tok.Kind)
}

// parseRExpr folds binary operators of at least precedence base onto lhs
// by precedence climbing.
func parseRExpr(ts *tokenStream, lhs Expr, base Precedence) (Expr, error) {
	for {
		op, ok := peekBinary(ts)
		if !ok || op.Precedence() < base {
			return lhs, nil
		}
		if _, err := ts.consume(); err != nil {
			return nil, err
		}
		rhs, err := parseUnary(ts)
		if err != nil {
			return nil, err
		}
		for {
			next, ok := peekBinary(ts)
			if !ok {
				break
			}
			if next.Precedence() > op.Precedence() ||
				(next.Precedence() == op.Precedence() && op.RightAssociative()) {
				rhs, err = parseRExpr(ts, rhs, next.Precedence())
				if err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		lhs = Binary{LHS: lhs, Op: op, RHS: rhs}
	}
}

func parseUnary(ts *tokenStream) (Expr, error) {
	tok, err := ts.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case Plus, Minus:
		_, _ = ts.consume()
		op := UnaryPlus
		if tok.Kind == Minus {
			op = UnaryMinus
		}
		x, err := parseUnary(ts)
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, X: x}, nil
	case NumLit:
		_, _ = ts.consume()
		return parseInt(tok)
	case LParen:
		_, _ = ts.consume()
		x, err := parseExpr(ts)
		if err != nil {
			return nil, err
		}
		closing, err := ts.consume()
		if err != nil {
			return nil, err
		}
		if closing.Kind != RParen {
			return nil, parseErrorAt(closing.Offset, ErrExpectedRParen)
		}
		return Paren{X: x}, nil
	case Ident:
		_, _ = ts.consume()
		if next, err := ts.peek(); err == nil && next.Kind == LParen {
			_, _ = ts.consume()
			args, err := parseArgs(ts)
			if err != nil {
				return nil, err
			}
			return Call{Name: tok.Text, Args: args}, nil
		}
		return Variable{Name: tok.Text}, nil
	}
	return nil, parseErrorAt(tok.Offset, ErrExpectedUnary)
}

// parseArgs parses a comma separated argument list after the opening
// parenthesis, up to and including the closing one. A trailing comma is
// accepted. A token that cannot start an argument reports a missing `)`.
func parseArgs(ts *tokenStream) ([]Expr, error) {
	args := []Expr{}
	for {
		tok, err := ts.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case RParen:
			_, _ = ts.consume()
			return args, nil
		case Plus, Minus, NumLit, LParen, Ident:
		default:
			return nil, parseErrorAt(tok.Offset, ErrExpectedRParen)
		}
		arg, err := parseExpr(ts)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		sep, err := ts.consume()
		if err != nil {
			return nil, err
		}
		switch sep.Kind {
		case Comma:
		case RParen:
			return args, nil
		default:
			return nil, parseErrorAt(sep.Offset, ErrExpectedRParen)
		}
	}
}

func parseInt(tok Token) (Expr, error) {
	if tok.Kind != NumLit {
		return nil, parseErrorAt(tok.Offset, ErrExpectedNum)
	}
	n, ok := new(big.Int).SetString(tok.Text, 10)
	if !ok {
		return nil, parseErrorAt(tok.Offset, ErrInvalidInteger)
	}
	return Int{Value: n}, nil
}
