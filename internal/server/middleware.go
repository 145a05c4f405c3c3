package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	localUser  = "user"
	localToken = "token"
)

// TracingMiddleware starts a server span per request.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		spanName := fmt.Sprintf("%s %s", c.Method(), c.Path())
		ctx, span := observability.Tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
			),
		)
		defer span.End()

		if span.SpanContext().HasTraceID() {
			c.Locals("traceID", span.SpanContext().TraceID().String())
			c.Set("X-Trace-ID", span.SpanContext().TraceID().String())
		}
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		if u, ok := c.Locals(localUser).(*models.User); ok {
			span.SetAttributes(attribute.String("user.id", u.ID))
		}
		return err
	}
}

// ContextMiddleware copies the request and trace IDs from Fiber locals into
// the request context for the logger.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = observability.WithRequestID(ctx, rid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}

// AuthRequired resolves the bearer token to the signed-in user.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.gw.GetCurrentUser(c.UserContext(), token)
		if err != nil {
			status := models.StatusFor(err)
			if status < fiber.StatusInternalServerError {
				status = fiber.StatusUnauthorized
			}
			return models.RespondWithError(c, status, err)
		}

		c.Locals(localUser, user)
		c.Locals(localToken, token)
		c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
