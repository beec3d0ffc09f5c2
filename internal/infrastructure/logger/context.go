package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

// loggerKey is the context key for the request-scoped logger
const loggerKey contextKey = "logger"

// WithContext returns a new context with the logger attached. The gin
// middleware uses this to hand the request-scoped logger, request id
// field included, to everything below the handler.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the request-scoped logger from context, or nil
// when none is attached. Callers keep their own logger as the fallback
// so background work stays logged.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return nil
}
