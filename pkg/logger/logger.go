package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "content-collections"

// ParseLevel maps a configured level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a structured logger writing to stdout.
// Format "pretty" switches to console output for local runs.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(ParseLevel(level)).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger()
	}

	// JSON output for production
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// FromEnv builds a logger from LOG_LEVEL and LOG_FORMAT before configuration is loaded.
// ENV=development implies pretty output.
func FromEnv() zerolog.Logger {
	format := os.Getenv("LOG_FORMAT")
	if os.Getenv("ENV") == "development" {
		format = "pretty"
	}
	return New(os.Getenv("LOG_LEVEL"), format)
}
