// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ContactKey is the context key for the lead's contact key (normalized phone)
	ContactKey contextKey = "contact_key"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and contact_key from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if contact, ok := ctx.Value(ContactKey).(string); ok && contact != "" {
		newLogger = newLogger.WithContact(contact)
	}

	return newLogger
}

// WithContact returns a logger with the lead's contact key attached.
func (l *Logger) WithContact(contactKey string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("contact_key", contactKey)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// BookingEvent logs booking-link lifecycle events (issued, used, expired, purged).
func (l *Logger) BookingEvent(event, bookingID, contactKey string) {
	l.Info("booking_event",
		slog.String("event", event),
		slog.String("booking_id", bookingID),
		slog.String("contact_key", contactKey),
	)
}

// WebhookDropped logs an inbound webhook event that could not be correlated.
func (l *Logger) WebhookDropped(source, reason string) {
	l.Warn("webhook_dropped",
		slog.String("source", source),
		slog.String("reason", reason),
	)
}

// ExternalCallFailed logs a failed best-effort call to an external provider.
func (l *Logger) ExternalCallFailed(provider, operation string, err error) {
	l.Warn("external_call_failed",
		slog.String("provider", provider),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
