package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

type CORSConfig struct {
	// AllowedOrigins lists storefront and back-office origins. "*" allows
	// any origin and is meant for local development.
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Accept", "Authorization", "Content-Type",
		HeaderCorrelationID, HeaderSessionID, HeaderUserID, "X-User-Email",
	}, ", ")
	corsExposed = strings.Join([]string{HeaderCorrelationID, HeaderSessionID}, ", ")
)

// CORS answers preflight requests and decorates responses for the
// configured origins.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 3600
	}
	maxAgeStr := strconv.Itoa(maxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			switch {
			case wildcard && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && (wildcard || slices.Contains(cfg.AllowedOrigins, origin)):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposed)
			h.Set("Access-Control-Max-Age", maxAgeStr)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
