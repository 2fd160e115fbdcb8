// Package xlog provides structured logging shared across every subsystem of
// the release pipeline. It wraps log/slog with per-subsystem child loggers,
// the way a sibling repo in this codebase's lineage wraps slog for its own
// per-module loggers.
package xlog

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with module context.
type Logger struct {
	inner *slog.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger writing JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler wraps an arbitrary slog.Handler, chiefly for tests.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger { return defaultLogger }

// Module returns a child logger tagged with the given subsystem name, e.g.
// xlog.Default().Module("enroll").
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger carrying additional key-value context.
// Callers must never pass raw key material; zeroize.Key intentionally has
// no String()/LogValue() method so it cannot be logged by accident.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
