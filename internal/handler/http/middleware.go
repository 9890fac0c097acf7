package http

import (
	"net/http"
	"strings"

	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/middleware"
)

// headerUserEmail is injected by the gateway next to X-User-ID.
const headerUserEmail = "X-User-Email"

// RequireSession rejects shopper requests that do not carry the
// X-Session-ID header handed out by POST /api/v1/sessions.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get(middleware.HeaderSessionID)) == "" {
			httputil.WriteBadRequest(w, "SESSION_REQUIRED", middleware.HeaderSessionID+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON enforces that requests with a body are JSON. Multipart
// bodies are let through for the upload endpoints.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") && !strings.HasPrefix(ct, "multipart/form-data") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json or multipart/form-data"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// shopperFrom reads the caller's identity. The user headers are set by the
// gateway after it has validated the shopper's token; the session header
// comes from the storefront itself.
func shopperFrom(r *http.Request) service.Shopper {
	return service.Shopper{
		SessionID: strings.TrimSpace(r.Header.Get(middleware.HeaderSessionID)),
		UserID:    strings.TrimSpace(r.Header.Get(middleware.HeaderUserID)),
		UserEmail: strings.TrimSpace(r.Header.Get(headerUserEmail)),
	}
}
