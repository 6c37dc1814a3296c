package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.Level(-8)

// levelNone is above every level the code logs at.
const levelNone = slog.Level(16)

var levels = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"none":  levelNone,
}

// ParseLevel maps a level name to a slog level. Unknown names give
// slog.LevelError.
func ParseLevel(name string) slog.Level {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l
	}
	return slog.LevelError
}

// ValidLevel reports whether name is a known level.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(name)]
	return ok
}

// OpenLogWriter opens file for appending, creating parent directories. On
// any failure it reports to stderr and falls back to stderr. The returned
// closer is a no-op for stderr.
func OpenLogWriter(file string) (io.Writer, func() error) {
	noop := func() error { return nil }
	if file == "" {
		return os.Stderr, noop
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", file, err)
		return os.Stderr, noop
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", file, err)
		return os.Stderr, noop
	}
	return f, f.Close
}

// NewLogger builds the JSON logger described by l.
func NewLogger(w io.Writer, l Log) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     ParseLevel(l.Level),
	}))
}
