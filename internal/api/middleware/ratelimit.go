// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window.
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc extracts the rate limit key from the request. Nil keys by IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit limits requests with a sliding window counter. Rejected requests
// get a JSON 429 with Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.WindowSize.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}

// APIRateLimit allows perMinute requests per minute and client IP. Zero or
// negative disables limiting.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(RateLimitConfig{
		RequestLimit: perMinute,
		WindowSize:   time.Minute,
	})
}
