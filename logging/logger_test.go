package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_TextFormat_WritesComponent(t *testing.T) {
	// GIVEN a text logger
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Level: "debug", Format: FormatText, Output: &buf}), "monitor")

	// WHEN logging
	logger.Debug("tick")

	// THEN the line carries message and component
	assert.Contains(t, buf.String(), "msg=tick")
	assert.Contains(t, buf.String(), ComponentKey+"=monitor")
}

func TestNew_LevelFilters(t *testing.T) {
	// GIVEN a warn-level JSON logger
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: FormatJSON, Output: &buf})

	// WHEN logging below and at the level
	logger.Info("hidden")
	logger.Warn("shown")

	// THEN only the warn line is written
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
