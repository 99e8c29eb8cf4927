// Package logging provides structured logging helpers shared across flowvault.
//
// Loggers are dependency-injected, never global: each component receives a
// *slog.Logger at construction time and scopes it once with slog.With. When
// no logger is provided, a discard logger is used so callers never need nil
// checks. Global configuration (format, level, destination) belongs only in
// main().
//
// Logging is intentionally sparse. The event-delivery path writes at most one
// record per dropped event; nothing logs inside row evaluation or the filter
// compiler.
package logging

import (
	"context"
	"log/slog"
)

// discardHandler drops all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns the provided logger if non-nil, otherwise a discard logger.
// Standard pattern for optional logger parameters:
//
//	func NewRecorder(logger *slog.Logger) *Recorder {
//	    logger = logging.Default(logger)
//	    return &Recorder{logger: logger.With("component", "recorder")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
