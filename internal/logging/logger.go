// Package logging provides structured logging for the onion request core.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
	Output io.Writer
}

// Logger wraps zerolog.Logger with additional context.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new structured logger.
func NewLogger(cfg LogConfig) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	if cfg.Output != nil {
		output = cfg.Output
	} else {
		output = os.Stdout
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "onionreq").
		Logger()

	return &Logger{Logger: logger}
}

// WithComponent returns a logger with component context.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithRequestID returns a logger tagged with a request's correlation ID.
func (l *Logger) WithRequestID(id uuid.UUID) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", id.String()).Logger(),
	}
}

// WithPath returns a logger tagged with the onion path a request traveled,
// so a guard failure and its node-health scoring can be correlated by hop.
func (l *Logger) WithPath(path onion.OnionPath) *Logger {
	return &Logger{
		Logger: l.With().
			Str("node_1", path.Node1.String()).
			Str("node_2", path.Node2.String()).
			Str("node_3", path.Node3.String()).
			Str("target", path.Target.String()).
			Logger(),
	}
}
