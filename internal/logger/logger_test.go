package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("convert_done", "file", "a.geojson")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "convert_done", rec["msg"])
	assert.Equal(t, "a.geojson", rec["file"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "").Debug("label_scan_begin", "files", 2)
	assert.Contains(t, buf.String(), "msg=label_scan_begin")
	assert.Contains(t, buf.String(), "files=2")
}

func TestSetupFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := Setup()
	assert.Same(t, l, L())
	assert.False(t, l.Enabled(context.Background(), slog.LevelWarn))
}
