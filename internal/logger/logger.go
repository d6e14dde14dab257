// Package logger provides the process-wide structured logger.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(zap.NewNop().Sugar())
}

// Initialize replaces the process logger with a JSON production logger at the given level.
// Unknown levels fall back to info.
func Initialize(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set installs l as the process logger.
func Set(l *zap.Logger) {
	current.Store(l.Sugar())
}

// Get returns the process logger.
func Get() *zap.SugaredLogger {
	return current.Load()
}

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Get().Sync()
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { Get().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { Get().Infof(format, args...) }

// Info logs a message at info level.
func Info(msg string) { Get().Info(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { Get().Warnf(format, args...) }

// Warn logs a message at warn level.
func Warn(msg string) { Get().Warn(msg) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { Get().Errorf(format, args...) }

// Fatalf logs a formatted message and exits the process.
func Fatalf(format string, args ...any) { Get().Fatalf(format, args...) }
