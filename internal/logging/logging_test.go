package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "text")

	logger.WithGroup("batch").With("id", "b1").Info("batch scored", "rows", 3)
	assert.Equal(t, "[batch] batch scored: id=b1 rows=3\n", buf.String())
}

func TestConsoleHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("artifact load failed", "error", "boom")
	assert.Equal(t, "ERROR artifact load failed: error=boom\n", buf.String())
}

func TestConsoleHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text")

	base.With("a", 1).Info("first")
	base.Info("second")
	assert.Equal(t, "first: a=1\nsecond\n", buf.String())
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "json").Debug("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}
