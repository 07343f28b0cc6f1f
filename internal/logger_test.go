package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.LevelInfo + 2},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestNewLogger_ProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "warn")

	logger.Info("dropped")
	logger.Warn("kept", "complaint_id", "c-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "civicpulse", rec["service"])
	assert.Equal(t, "production", rec["env"])
	assert.Equal(t, "c-1", rec["complaint_id"])
	assert.NotContains(t, rec, slog.SourceKey)
}

func TestNewLogger_DevelopmentText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development", "debug").Debug("hello")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "env=development")
	assert.Contains(t, out, "source=")
}
