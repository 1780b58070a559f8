package calculator

import (
	"errors"
	"fmt"
)

// Parse errors
var (
	ErrExpectedUnary        = errors.New("expected one of `+-`")
	ErrExpectedBinary       = errors.New("expected one of `+-*/%`")
	ErrExpectedNum          = errors.New("expected digits")
	ErrExpectedRParen       = errors.New("expected `)`")
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrInvalidInteger       = errors.New("unexpected integer literal")
)

// Evaluation errors
var (
	ErrDivideByZero          = errors.New("divide by zero")
	ErrNegativePower         = errors.New("negative power")
	ErrExponentTooLarge      = errors.New("exponent too large")
	ErrResultTooLarge        = errors.New("result too large")
	ErrNegativeRoot          = errors.New("negative root")
	ErrInvalidArgumentLength = errors.New("invalid argument length")
	ErrUndefinedVariable     = errors.New("undefined variable")
	ErrUndefinedFunction     = errors.New("undefined function")
	ErrUnableToAssign        = errors.New("unable to assign")
)

// ParseError locates a parse failure in the input. Offset is a byte offset;
// it equals len(input) when the input ended too early.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErrorAt(offset int, err error) error {
	return &ParseError{Offset: offset, Err: err}
}

// EvalError names the identifier an evaluation failure is about, if any.
type EvalError struct {
	Name string
	Err  error
}

func (e *EvalError) Error() string {
	return e.Err.Error()
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Detail renders the error together with the identifier it concerns,
// e.g. "undefined variable: x".
func (e *EvalError) Detail() string {
	if e.Name == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Name)
}

func evalErrorFor(name string, err error) error {
	return &EvalError{Name: name, Err: err}
}
