package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey        contextKey = "logger"
	correlationIDKey contextKey = "correlation_id"
	vendorIDKey      contextKey = "vendor_id"
)

// WithContext returns a context with the logger attached.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithCorrelationID stores the correlation ID and returns a logger enriched
// with it. The same ID travels to the agent on outbound calls.
func WithCorrelationID(ctx context.Context, logger *zap.Logger, correlationID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, correlationIDKey, correlationID)
	enriched := logger.With(zap.String("correlation_id", correlationID))
	return WithContext(ctx, enriched), enriched
}

// WithVendorID stores the vendor ID and returns a logger enriched with it.
func WithVendorID(ctx context.Context, logger *zap.Logger, vendorID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, vendorIDKey, vendorID)
	enriched := logger.With(zap.String("vendor_id", vendorID))
	return WithContext(ctx, enriched), enriched
}

// GetCorrelationID retrieves the correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// GetVendorID retrieves the vendor ID from context.
func GetVendorID(ctx context.Context) string {
	if v, ok := ctx.Value(vendorIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceContext enriches the logger with trace_id and span_id from the
// active span, if any.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return logger
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
