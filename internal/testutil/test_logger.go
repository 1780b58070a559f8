package testutil

import (
	"bytes"
	"io"
	"os"

	"github.com/rs/zerolog"
)

func NewTestLogger() *zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	return &logger
}

// NewBufferedLogger logs JSON lines into the returned buffer and mirrors them
// to stdout through a console writer.
func NewBufferedLogger() (*zerolog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	consoleWriter := zerolog.ConsoleWriter{
		Out: os.Stdout,
	}
	logger := zerolog.New(io.MultiWriter(consoleWriter, &buf)).With().Timestamp().Logger()
	return &logger, &buf
}

func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}
