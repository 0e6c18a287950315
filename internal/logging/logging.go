// Package logging provides the process-wide slog logger.
//
// Messages use a "component: message" prefix with key/value attributes, for
// example logger.Info("api: query saved", "database", db, "slug", slug).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

// Logger returns the singleton logger. On first use the level is taken from
// the LOG_LEVEL environment variable; Configure may change it later.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		level.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
		logger = newLogger(os.Stderr)
	}
	return logger
}

// Configure sets the log level from a config value such as "debug".
// An empty value leaves the current level unchanged.
func Configure(value string) {
	Logger()
	if strings.TrimSpace(value) == "" {
		return
	}
	level.Set(ParseLevel(value))
}

// SetOutput redirects the singleton logger to w. Used by tests and by the CLI
// when stderr is reserved for command output.
func SetOutput(w io.Writer) {
	Logger()
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Unknown values map to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
