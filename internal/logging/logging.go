// Package logging configures the process-wide structured and
// human-readable loggers used across sonicvg.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger
var humanReadableLogger *slog.Logger

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if name, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(name)
		}
	}
	return a
}

// Init configures the JSON structured logger (stdout) and the text
// human-readable logger (stderr) at their default levels.
func Init() {
	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceLevel,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: replaceLevel,
	}))
	slog.SetDefault(structuredLogger)
}

// SetLevel re-creates both loggers at the given minimum level.
func SetLevel(level slog.Level) {
	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}))
	slog.SetDefault(structuredLogger)
}

// Structured returns the process-wide JSON logger, or nil if Init has
// not been called.
func Structured() *slog.Logger { return structuredLogger }

// HumanReadable returns the process-wide text logger, or nil if Init has
// not been called.
func HumanReadable() *slog.Logger { return humanReadableLogger }

// ForService returns a logger tagged with the given component name,
// falling back to a default JSON-to-stderr logger if Init has not been
// called yet (useful in package-level var initialisers and tests).
func ForService(name string) *slog.Logger {
	if structuredLogger == nil {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", name)
	}
	return structuredLogger.With("service", name)
}

// Debug logs at debug level on the default logger.
func Debug(msg string, args ...any) { slog.Debug(msg, args...) }

// Info logs at info level on the default logger.
func Info(msg string, args ...any) { slog.Info(msg, args...) }

// Warn logs at warn level on the default logger.
func Warn(msg string, args ...any) { slog.Warn(msg, args...) }

// Error logs at error level on the default logger.
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// Fatal logs at the custom fatal level and terminates the process.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at the custom trace level on the default logger.
func Trace(msg string, args ...any) { slog.Log(context.TODO(), LevelTrace, msg, args...) }

// NewFileLogger creates a JSON logger rotated by lumberjack, tagged with
// the given service name. The returned close function flushes rotation
// bookkeeping; callers should defer it.
func NewFileLogger(filePath, serviceName string, level slog.Level, maxSizeMB, maxBackups, maxAgeDays int) (*slog.Logger, func() error, error) {
	dir := filepath.Dir(filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}

	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})

	logger := slog.New(handler).With("service", serviceName)
	return logger, writer.Close, nil
}
