package lumber

import (
	"context"

	"github.com/nilpntr/lumber/lumbertype"
)

// DefaultLoggerName names the logger returned by FromContext when the
// context carries none.
const DefaultLoggerName = "lumber"

type loggerKey struct{}

// WithLogger adds a logger instance to the context.
func WithLogger(ctx context.Context, logger lumbertype.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger from the context.
// If no logger is found, returns the default logger.
func FromContext(ctx context.Context) lumbertype.Logger {
	if l, ok := ctx.Value(loggerKey{}).(lumbertype.Logger); ok {
		return l
	}
	return New(DefaultLoggerName)
}

// LogFromContext logs a message using the logger from the context.
// If no logger is found in the context, uses the default logger.
func LogFromContext(ctx context.Context, level Level, msg string, fields ...Field) {
	logger := FromContext(ctx).WithContext(ctx)

	switch level {
	case LevelTrace:
		logger.Trace(msg, fields...)
	case LevelDebug:
		logger.Debug(msg, fields...)
	case LevelInfo:
		logger.Info(msg, fields...)
	case LevelWarn:
		logger.Warn(msg, fields...)
	case LevelError:
		logger.Error(msg, fields...)
	case LevelFatal:
		logger.Fatal(msg, fields...)
	}
}

// DebugContext logs a debug message using the context logger.
func DebugContext(ctx context.Context, msg string, fields ...Field) {
	LogFromContext(ctx, LevelDebug, msg, fields...)
}

// InfoContext logs an info message using the context logger.
func InfoContext(ctx context.Context, msg string, fields ...Field) {
	LogFromContext(ctx, LevelInfo, msg, fields...)
}

// WarnContext logs a warning message using the context logger.
func WarnContext(ctx context.Context, msg string, fields ...Field) {
	LogFromContext(ctx, LevelWarn, msg, fields...)
}

// ErrorContext logs an error message using the context logger.
func ErrorContext(ctx context.Context, msg string, fields ...Field) {
	LogFromContext(ctx, LevelError, msg, fields...)
}
