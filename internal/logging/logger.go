// Package logging sets up structured logging for the session pool
// daemon. Every subsystem (pool, cleaner, launcher, prober, metrics)
// logs snake_case events through a component-tagged child of one root
// slog logger, so a single stream can be filtered per subsystem.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// componentKey tags each subsystem's child logger.
const componentKey = "component"

// levelNames maps the -log-format companion level strings accepted by
// the daemon's config surface to slog levels.
var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewLogger builds the daemon's root logger on stderr. Format is "json"
// (the default, for log shippers) or "text" for humans. Verbose forces
// debug level and records source locations, which is what you want when
// chasing a session lifecycle bug.
func NewLogger(format, level string, verbose bool) *slog.Logger {
	if verbose {
		level = "debug"
	}
	return slog.New(newHandler(os.Stderr, format, parseLevel(level), verbose))
}

// NewLoggerWithWriter builds a logger on an arbitrary writer. Tests use
// it to capture or discard the daemon's output.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	return slog.New(newHandler(w, format, parseLevel(level), false))
}

// newHandler picks the slog handler for a format string. Unknown formats
// fall back to JSON so a typo in -log-format never silences the daemon.
func newHandler(w io.Writer, format string, level slog.Level, source bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: source,
	}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config level string to a slog level. Empty or
// unknown strings mean info, the daemon default.
func parseLevel(level string) slog.Level {
	if l, ok := levelNames[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// WithComponent returns a child logger tagged with a component name.
// The pool, cleaner, launcher, prober and metrics server all log through
// tagged children of the root logger.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(componentKey, component)
}
