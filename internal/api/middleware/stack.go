// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP middleware stack of the API server.
package middleware

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	CSP                   string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// RateLimit is requests per minute and client IP; 0 disables it.
	RateLimit int
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(xglog.Middleware())
	}
	r.Use(APIRateLimit(cfg.RateLimit))
}
