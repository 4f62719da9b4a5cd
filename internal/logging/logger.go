// Package logging builds the process slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options customize logger construction.
type Options struct {
	Level     slog.Level
	Format    string
	AddSource bool
	Output    io.Writer
}

// New returns a slog.Logger configured according to opts. JSON is the default format.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForEnvironment resolves Options from the deployment environment and the
// explicit level/format settings. Production always logs JSON. Development
// defaults to debug level and text output. Explicit settings win otherwise.
func ForEnvironment(env, level, format string) Options {
	env = strings.ToLower(strings.TrimSpace(env))
	format = strings.ToLower(strings.TrimSpace(format))

	opts := Options{Level: ParseLevel(level), Format: format}
	switch env {
	case "production":
		opts.Format = "json"
	case "development":
		if strings.TrimSpace(level) == "" {
			opts.Level = slog.LevelDebug
		}
		if format == "" {
			opts.Format = "text"
		}
		opts.AddSource = true
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	return opts
}
