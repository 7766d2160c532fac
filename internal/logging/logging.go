// Package logging builds the zerolog loggers shared by the server and CLI.
// The ot and otclient packages stay logging-free; they are pure and
// synchronous and report failures through returned errors instead.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a timestamped zerolog.Logger writing to w at level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	return logger.Level(level)
}

// NewConsole returns a human-readable logger for local runs, writing to
// os.Stdout through a zerolog.ConsoleWriter.
func NewConsole(level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return New(cw, level)
}

// ParseLevel maps a config string ("debug", "info", ...) to a zerolog.Level,
// defaulting to zerolog.InfoLevel for an empty or unrecognized value.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
