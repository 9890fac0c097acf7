package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/rxstore/pkg/logger"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderSessionID     = "X-Session-ID"
	HeaderUserID        = "X-User-ID"
)

// RequestLogging assigns a correlation id (reusing the caller's when sent)
// and writes one access log line per request.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(HeaderCorrelationID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderCorrelationID, id)
			ctx := logger.WithCorrelationID(r.Context(), id)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			l.Log(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", rec.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("correlation_id", id),
			)
		})
	}
}

// RequestLogger stores a logger enriched with the request's correlation,
// session, user and trace ids in the context. Mount it after RequestLogging
// and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get(HeaderUserID)
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if sid := r.Header.Get(HeaderSessionID); sid != "" {
				ctx = logger.WithSessionID(ctx, sid)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
