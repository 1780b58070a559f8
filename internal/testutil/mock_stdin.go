package testutil

import (
	"io"
	"strings"
)

// MockStdinReader hands out one newline terminated line per Read, the way a
// terminal delivers input, then io.EOF.
type MockStdinReader struct {
	pending []string
	line    *strings.Reader
}

func NewMockStdinReader(lines []string) *MockStdinReader {
	return &MockStdinReader{pending: lines}
}

func (r *MockStdinReader) Read(p []byte) (int, error) {
	for r.line == nil || r.line.Len() == 0 {
		if len(r.pending) == 0 {
			return 0, io.EOF
		}
		r.line = strings.NewReader(r.pending[0] + "\n")
		r.pending = r.pending[1:]
	}
	return r.line.Read(p)
}
