// Package logger builds the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/AnshRaj112/moodlog-backend/internal/config"
)

// New creates a *slog.Logger from cfg and installs it as the slog default.
//
// Format "json" produces JSON lines; anything else produces text with source
// locations. Level is one of debug, info, warn, error; defaults to info.
func New(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: !strings.EqualFold(cfg.Format, "json"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
