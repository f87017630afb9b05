// Package logger wires zerolog with the field vocabulary used across all
// run modes: every entry carries the service name, actions are logged as
// the "action" field.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns the root logger for a service. Level and format come from the
// arguments so config stays the single source of truth.
func New(service, level, format string) zerolog.Logger {
	return NewWithOutput(service, level, format, os.Stdout)
}

func NewWithOutput(service, level, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	host, _ := os.Hostname()
	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Str("hostname", host).
		Logger()
}
