// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logger used throughout the application.
var Logger *slog.Logger

type contextKey string

// Context keys picked up by the logging handler.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(string); ok {
		r.AddAttrs(slog.String("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func init() {
	Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"))
}

// NewLogger builds a context-aware logger: JSON in production, text otherwise.
func NewLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// SetLogger swaps the package logger. Intended for main and tests.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// WithUserID returns a context whose log records carry the user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithRequestID returns a context whose log records carry the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// OperationLogger provides structured logging for calls against one external collaborator.
type OperationLogger struct {
	component string
}

// NewOperationLogger creates an OperationLogger tagged with the given component
// ("gateway", "documents.posts", "storage", ...).
func NewOperationLogger(component string) *OperationLogger {
	return &OperationLogger{component: component}
}

// LogSuccess logs a completed operation at debug level.
func (l *OperationLogger) LogSuccess(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	Logger.DebugContext(ctx, "operation completed", attrs...)
}

// LogError logs a failed operation along with its error code.
func (l *OperationLogger) LogError(ctx context.Context, operation, code string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("operation", operation),
		slog.String("code", code),
		slog.String("error", err.Error()),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	Logger.ErrorContext(ctx, "operation failed", attrs...)
}

// LogWarn logs a degraded but non-fatal condition.
func (l *OperationLogger) LogWarn(ctx context.Context, operation, msg string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	Logger.WarnContext(ctx, msg, attrs...)
}
