package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialtool/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default().Logging

	logger, closer := New(&cfg, &buf, false)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("Session opened", "device", "COM-TEST")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Session opened")
	assert.Contains(t, out, "device=COM-TEST")
}

func TestNew_DebugFlagOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "error"}

	logger, _ := New(&cfg, &buf, true)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_RotatingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Logging
	cfg.BasePath = dir

	logger, closer := New(&cfg, nil, false)
	logger.Info("Command library saved", "entries", 2)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, cfg.Filename))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "Command library saved", record["msg"])
	assert.Equal(t, float64(2), record["entries"])
}
