package logging

import (
	"context"
	"io"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in the context, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// NewStructuredLogger creates a JSON logger writing to w at the given level.
func NewStructuredLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// LogError logs an error with a message and optional structured attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	args := append([]any{slog.Any("error", err)}, attrs...)
	logger.Error(msg, args...)
}

// LogOperation records a named operation at info level.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) {
	args := append([]any{slog.String("operation", operation)}, attrs...)
	logger.Info("operation", args...)
}

// SafeCloseWithLogging closes the closer and logs a warning if closing fails.
// Intended for deferred closes of response bodies and files.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, name string) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close resource",
			slog.String("resource", name),
			slog.Any("error", err))
	}
}
