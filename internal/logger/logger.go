// Package logger provides structured logging for the application.
package logger

import (
	"log/slog"
	"os"
)

var log *slog.Logger

// Init sets up the global logger. Log level is controlled by the DEBUG
// environment variable.
func Init() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	log = slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(log)
}

func get() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

// With returns a child logger tagged with a component name.
func With(component string) *slog.Logger {
	return get().With("component", component)
}

func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}
