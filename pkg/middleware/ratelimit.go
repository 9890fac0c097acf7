package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged against.
type KeyFunc func(r *http.Request) string

// limiterStore keeps one token bucket per key and forgets keys idle for
// longer than ttl. Eviction is lazy, on access, so no goroutine is needed.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perSecond float64, burst int, ttl time.Duration) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > s.ttl {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimit answers 429 once a key exceeds perSecond requests (with the
// given burst). Coupon application uses it to slow down code guessing.
func RateLimit(perSecond float64, burst int, key KeyFunc, l *slog.Logger) func(http.Handler) http.Handler {
	store := newLimiterStore(perSecond, burst, 10*time.Minute)
	return rateLimit(store, key, l)
}

func rateLimit(store *limiterStore, key KeyFunc, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !store.get(k).Allow() {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("key", k),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BySessionOrIP keys on the shopper session header, falling back to the
// client address.
func BySessionOrIP(r *http.Request) string {
	if sid := r.Header.Get(HeaderSessionID); sid != "" {
		return "session:" + sid
	}
	return "ip:" + ClientIP(r)
}

// ClientIP is the first address in X-Forwarded-For, then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(r.Header.Get("X-Real-IP")); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
