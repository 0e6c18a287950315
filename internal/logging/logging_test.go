package logging

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConfigureChangesLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		Configure("info")
	})

	Configure("warn")
	Logger().Info("test: hidden")
	Logger().Warn("test: shown", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "test: shown")
	assert.Contains(t, buf.String(), "key=value")

	// Empty keeps the current level.
	Configure("")
	Logger().Info("test: still hidden")
	assert.NotContains(t, buf.String(), "still hidden")

	Configure("debug")
	Logger().Debug("test: debug visible")
	assert.Contains(t, buf.String(), "debug visible")
}

func TestLoggerSingleton(t *testing.T) {
	assert.Same(t, Logger(), Logger())
}
