package logger

import (
	"github.com/rs/zerolog"
)

// Secret wraps a credential so it can be attached to log events without
// leaking its value.
type Secret string

func (s Secret) Redacted() string {
	switch n := len(s); {
	case n == 0:
		return ""
	case n <= 8:
		return "****"
	default:
		return string(s[:4]) + "****"
	}
}

func (s Secret) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("set", s != "")
	e.Str("value", s.Redacted())
}

func (s Secret) String() string {
	return s.Redacted()
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.Redacted() + `"`), nil
}

// Reveal returns the clear value, for the one place that sends it.
func (s Secret) Reveal() string {
	return string(s)
}
