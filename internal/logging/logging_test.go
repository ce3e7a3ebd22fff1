package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" info ":  slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"":        slog.LevelDebug,
	}
	for in, want := range tests {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("run finished", "status", "success")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "success", entry["status"])
}

func TestNewWithWriter_TextFormatDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "warn", "").Warn("slow source", "source", "rss")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "source=rss")
}

func TestCronLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := CronLogger(NewWithWriter(&buf, "info", "text"))

	logger.Info("wake", "now", "12:00")
	assert.Empty(t, buf.String(), "cron info is demoted to debug")

	logger.Error(errors.New("panic in job"), "panic", "entry", 1)
	assert.Contains(t, buf.String(), "cron: panic")
	assert.Contains(t, buf.String(), `error="panic in job"`)
	assert.Contains(t, buf.String(), "entry=1")
}
