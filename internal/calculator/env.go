package calculator

import (
	"math/big"
	"sort"
)

// DefaultMaxResultBits bounds the size of a product or power result.
const DefaultMaxResultBits = 1 << 22

// Function is a callable bound in an Environment. MaxArgs < 0 means variadic.
type Function struct {
	MinArgs int
	MaxArgs int
	Call    func(env *Environment, args []*big.Int) (*big.Int, error)
}

func (f Function) accepts(n int) bool {
	if n < f.MinArgs {
		return false
	}
	return f.MaxArgs < 0 || n <= f.MaxArgs
}

// Environment holds variable bindings and callable functions.
// It is not safe for concurrent use.
type Environment struct {
	variables map[string]*big.Int
	functions map[string]Function

	// MaxResultBits caps the estimated bit length of a product or power
	// result. Zero disables the check.
	MaxResultBits uint64
}

// NewEnvironment returns an Environment with the built-in functions installed.
func NewEnvironment() *Environment {
	env := &Environment{
		variables:     map[string]*big.Int{},
		functions:     map[string]Function{},
		MaxResultBits: DefaultMaxResultBits,
	}
	for name, fn := range builtins {
		env.functions[name] = fn
	}
	return env
}

// Get returns a copy of the value bound to name.
func (env *Environment) Get(name string) (*big.Int, error) {
	v, ok := env.variables[name]
	if !ok {
		return nil, evalErrorFor(name, ErrUndefinedVariable)
	}
	return new(big.Int).Set(v), nil
}

// Set binds name to a copy of v, replacing any previous binding.
func (env *Environment) Set(name string, v *big.Int) {
	env.variables[name] = new(big.Int).Set(v)
}

// Variables returns the bound variable names in sorted order.
func (env *Environment) Variables() []string {
	names := make([]string, 0, len(env.variables))
	for name := range env.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns the callable names in sorted order.
func (env *Environment) Functions() []string {
	names := make([]string, 0, len(env.functions))
	for name := range env.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops all variable bindings. Functions are kept.
func (env *Environment) Reset() {
	env.variables = map[string]*big.Int{}
}

func (env *Environment) lookup(name string) (Function, error) {
	fn, ok := env.functions[name]
	if !ok {
		return Function{}, evalErrorFor(name, ErrUndefinedFunction)
	}
	return fn, nil
}
