// Package logger provides structured logging for docsync.
// Records are emitted through log/slog as text or JSON. Verbose mode lowers
// the level to debug so per-document and per-batch detail is visible.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger settings.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "text" or "json".
	Format string
}

// DefaultConfig returns text output at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	format = "text"
	output io.Writer = os.Stderr
	log    = newLogger()
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// Configure applies cfg and installs the logger as the slog default.
func Configure(cfg Config) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	level.Set(ParseLevel(cfg.Level))
	format = strings.ToLower(cfg.Format)
	log = newLogger()
	slog.SetDefault(log)
	return log
}

// ParseLevel maps a level name to a slog level, defaulting to info.
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

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// IsVerbose returns true if debug output is enabled.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = newLogger()
}

// L returns the current logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs at debug level with key/value pairs.
func Debug(msg string, args ...any) {
	L().Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs at info level with key/value pairs.
func Info(msg string, args ...any) {
	L().Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs at warn level with key/value pairs.
func Warn(msg string, args ...any) {
	L().Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs at error level with key/value pairs.
func Error(msg string, args ...any) {
	L().Log(context.Background(), slog.LevelError, msg, args...)
}

// Section marks the start of a pipeline stage at debug level.
func Section(name string) {
	L().Log(context.Background(), slog.LevelDebug, "=== "+name+" ===")
}
