// Package logger builds the service's structured slog logger and carries
// request-scoped fields (correlation id, shopper session, user) through
// context so every log line of a request can be joined.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	keyCorrelationID ctxKey = iota
	keyUserID
	keySessionID
	keyLogger
)

// New returns a JSON logger on stdout tagged with the service name.
func New(service, level string) *slog.Logger {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(service, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With(slog.String("service", service))
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyCorrelationID, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, keyCorrelationID)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, keyUserID)
}

// WithSessionID records the shopper session (cart/checkout scope) for logging.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keySessionID, id)
}

func SessionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, keySessionID)
}

// NewContext stores a request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, l)
}

// FromContext returns the request-scoped logger, or slog.Default when none
// has been stored.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext decorates l with whatever request fields ctx carries,
// including the active OpenTelemetry trace and span ids.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	if v := CorrelationIDFromContext(ctx); v != "" {
		attrs = append(attrs, slog.String("correlation_id", v))
	}
	if v := SessionIDFromContext(ctx); v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	if v := UserIDFromContext(ctx); v != "" {
		attrs = append(attrs, slog.String("user_id", v))
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
