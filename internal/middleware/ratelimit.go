package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"otp-gateway/internal/fingerprint"
	"otp-gateway/internal/logger"
)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Match selects the requests that count against the limit. Nil matches all.
	Match func(*http.Request) bool
}

// keyByClientIP keys on the address resolved by ClientIP, so forwarding
// headers count only when they came through a trusted proxy.
func keyByClientIP(r *http.Request) (string, error) {
	return fingerprint.ClientIP(r), nil
}

// RateLimit limits matching requests per client IP. A zero Requests
// disables limiting.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 {
		return NoRateLimit()
	}

	limit := httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(keyByClientIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded", map[string]any{
				"ip":         fingerprint.ClientIP(r),
				"path":       r.URL.Path,
				"method":     r.Method,
				"user_agent": r.UserAgent(),
			})
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "Too many requests",
			})
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Match != nil && !cfg.Match(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}
