package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestForEnvironment(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		level      string
		format     string
		wantLevel  slog.Level
		wantFormat string
	}{
		{"production forces json", "production", "", "text", slog.LevelInfo, "json"},
		{"development defaults", "development", "", "", slog.LevelDebug, "text"},
		{"development explicit", "development", "warn", "json", slog.LevelWarn, "json"},
		{"test defaults", "test", "", "", slog.LevelInfo, "json"},
		{"staging text", "staging", "error", "text", slog.LevelError, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ForEnvironment(tt.env, tt.level, tt.format)
			assert.Equal(t, tt.wantLevel, opts.Level)
			assert.Equal(t, tt.wantFormat, opts.Format)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.Info("db_connected", "host", "localhost")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "db_connected", entry["msg"])
	assert.Equal(t, "localhost", entry["host"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelDebug, Format: "text", Output: &buf})

	logger.Debug("db_connect_retry", "attempt", 2)
	assert.Contains(t, buf.String(), "msg=db_connect_retry")
	assert.Contains(t, buf.String(), "attempt=2")
}
