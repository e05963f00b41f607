package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const (
	// TraceIDContextKey is the key for storing trace ID in context
	TraceIDContextKey contextKey = "trace_id"
	batchIDContextKey contextKey = "batch_id"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDContextKey).(string)
	return traceID
}

// WithBatchID marks ctx as belonging to an evaluation batch. Records logged
// with that context carry batch_id.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDContextKey, batchID)
}

// GetBatchID returns the batch id set by WithBatchID
func GetBatchID(ctx context.Context) string {
	batchID, _ := ctx.Value(batchIDContextKey).(string)
	return batchID
}

// GenerateTraceID creates a new unique trace ID
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// WithComponent creates a logger with a component field, falling back to the
// global logger when logger is nil.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}
