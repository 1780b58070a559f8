package logger

import (
	"os"

	"github.com/rs/zerolog"
)

const DefaultLogLevel = "info"

// New creates a new logger instance
func New(opts ...Option) *zerolog.Logger {
	config := &Config{
		output:       os.Stderr,
		level:        zerolog.InfoLevel,
		excludeParts: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName},
		isDev:        true,
	}

	for _, opt := range opts {
		opt.apply(config)
	}

	logger := zerolog.New(config.output).
		Level(config.level).
		With().
		Logger()
	if config.timestamp {
		logger = logger.With().Timestamp().Logger()
	}

	// Pretty logging for interactive use
	if config.isDev {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:          config.output,
			PartsExclude: config.excludeParts,
		})
	}

	return &logger
}

// NewConsoleLogger is the logger every command starts with.
func NewConsoleLogger() *zerolog.Logger {
	return New(
		WithLevel(DefaultLogLevel),
		WithOutput(os.Stderr),
		WithConsoleWriter(true),
	)
}

// NewServerLogger emits JSON lines with timestamps, suitable for request logs.
func NewServerLogger(level string) *zerolog.Logger {
	return New(
		WithLevel(level),
		WithOutput(os.Stderr),
		WithConsoleWriter(false),
		WithTimestamp(),
	)
}
