// Package logging wires the process logger: JSON records into a rotated
// file under the config directory, optionally mirrored to stderr.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default slog logger. All records go to
// <configDir>/logs/reporover.log with rotation; with verbose set, warnings
// and errors are mirrored to stderr as text.
func Setup(configDir string, verbose bool) *slog.Logger {
	fileHandler := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   filepath.Join(configDir, "logs", "reporover.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, &slog.HandlerOptions{Level: slog.LevelInfo})

	var handler slog.Handler = fileHandler
	if verbose {
		handler = tee{
			fileHandler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// tee fans records out to every handler that wants them.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
