package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// Logger is the global slog logger instance
	Logger *slog.Logger

	once sync.Once
)

// Init initializes the global logger with the given level.
// Unknown or empty levels fall back to info.
func Init(levelStr string) {
	level := ParseLevel(levelStr)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	once.Do(func() {})

	Logger.Info("Logger initialized", "level", level.String())
}

// ParseLevel maps a LOG_LEVEL value to a slog level
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

// get returns the global logger, installing a text logger if Init was never called
func get() *slog.Logger {
	once.Do(func() {
		if Logger == nil {
			Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		}
	})
	return Logger
}

// With returns a child logger carrying the given attributes
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}
