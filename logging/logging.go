package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"serialtool/config"
)

// ParseLevel maps a configured level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds the diagnostic logger. With a base path set, JSON records go to a
// rotating file; otherwise text records go to console. debug forces the debug
// level. The returned closer releases the file, if any.
func New(cfg *config.LoggingConfig, console io.Writer, debug bool) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.BasePath != "" {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.BasePath, cfg.Filename),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		return slog.New(slog.NewJSONHandler(writer, opts)), writer
	}

	return slog.New(slog.NewTextHandler(console, opts)), io.NopCloser(nil)
}
