package session

import (
	"math/big"
	"strings"
	"sync"

	"github.com/bigcalc/bigcalc/internal/calculator"
)

const (
	// PromptPrefix precedes every echoed input line in a transcript.
	PromptPrefix = "> "
	// ErrorPrefix precedes every failed evaluation in a transcript.
	ErrorPrefix = "error: "
)

// Result is the outcome of one submitted line.
type Result struct {
	Input  string          `json:"input"`
	Output string          `json:"output"`
	Error  bool            `json:"error"`
	Expr   calculator.Expr `json:"-"`
	Value  *big.Int        `json:"-"`
	Err    error           `json:"-"`
}

// Line renders the output the way it appears in a transcript.
func (r Result) Line() string {
	if r.Error {
		return ErrorPrefix + r.Output
	}
	return r.Output
}

// Session is an evaluation environment together with its transcript.
// It is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	env        *calculator.Environment
	transcript []string
}

func New() *Session {
	return &Session{env: calculator.NewEnvironment()}
}

// NewLimited returns a session whose products and powers may not exceed
// maxResultBits. Zero keeps the calculator default.
func NewLimited(maxResultBits uint64) *Session {
	env := calculator.NewEnvironment()
	if maxResultBits > 0 {
		env.MaxResultBits = maxResultBits
	}
	return NewWithEnvironment(env)
}

// NewWithEnvironment wraps an existing environment. The caller must not use
// env directly afterwards.
func NewWithEnvironment(env *calculator.Environment) *Session {
	return &Session{env: env}
}

// Submit parses and evaluates line. Blank lines yield ok == false and leave
// the transcript untouched.
func (s *Session) Submit(line string) (res Result, ok bool) {
	input := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(input) == "" {
		return Result{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res = Result{Input: input}
	expr, err := calculator.Parse(input)
	if err == nil {
		res.Expr = expr
		res.Value, err = calculator.Eval(expr, s.env)
	}
	if err != nil {
		res.Error = true
		res.Err = err
		res.Output = err.Error()
	} else {
		res.Output = res.Value.String()
	}

	s.transcript = append(s.transcript, PromptPrefix+input, res.Line())
	return res, true
}

// Transcript returns a copy of the lines produced so far.
func (s *Session) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transcript...)
}

// Variables lists bound variables with their values, sorted by name.
func (s *Session) Variables() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.env.Variables()
	out := make([]Binding, 0, len(names))
	for _, name := range names {
		v, err := s.env.Get(name)
		if err != nil {
			continue
		}
		out = append(out, Binding{Name: name, Value: v.String()})
	}
	return out
}

// Functions lists the callable names, sorted.
func (s *Session) Functions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Functions()
}

// Reset clears variables and the transcript.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.Reset()
	s.transcript = nil
}

type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
