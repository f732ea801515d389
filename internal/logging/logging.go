// Package logging builds the daemon's slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger pairs a text logger with a level that can change at runtime.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New returns a text logger writing to w at the named level. An unknown
// level falls back to info.
func New(w io.Writer, level string) *Logger {
	lv := new(slog.LevelVar)
	l, _ := ParseLevel(level)
	lv.Set(l)
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})),
		level:  lv,
	}
}

// SetLevel changes the level for every logger derived from l.
func (l *Logger) SetLevel(name string) error {
	lv, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.level.Set(lv)
	return nil
}

// Level returns the current level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}
