// Package logging centralizes construction of per-subsystem loggers on top
// of decred/slog, handing out a named slog.Logger per subsystem from one
// shared backend and level.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/decred/slog"
)

// Config selects where logs go and at what level, in the flag-driven shape
// a server's command-line entry point populates.
type Config struct {
	// DebugLevel is one of trace, debug, info, warn, error, critical, off.
	DebugLevel string
	// LogFile, if set, additionally writes to this file alongside stdout.
	LogFile string
}

// Backend hands out named Loggers sharing one output and level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
	closer  io.Closer
}

// NewBackend builds a Backend from cfg. The returned Backend's Close method
// must be called if LogFile was set.
func NewBackend(cfg Config) (*Backend, error) {
	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		l, ok := slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, fmt.Errorf("logging: unknown debug level %q", cfg.DebugLevel)
		}
		level = l
	}

	var w io.Writer = os.Stdout
	var closer io.Closer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	return &Backend{backend: slog.NewBackend(w), level: level, closer: closer}, nil
}

// Logger returns a named logger (e.g. "SERVER", "SCHEDULER", "ROOM") set to
// this Backend's configured level.
func (b *Backend) Logger(subsystemTag string) slog.Logger {
	l := b.backend.Logger(subsystemTag)
	l.SetLevel(b.level)
	return l
}

// Close releases the log file, if one was opened.
func (b *Backend) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
