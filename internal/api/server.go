// SPDX-License-Identifier: MIT

// Package api serves the collected dataset over a read-only HTTP API.
package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/api/middleware"
	v1 "github.com/kerryghan-relot/github-language-analysis/internal/api/v1"
	"github.com/kerryghan-relot/github-language-analysis/internal/health"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the HTTP surface.
type Config struct {
	Version string
	// RateLimit is requests per minute and client IP; 0 disables it.
	RateLimit int
	// TracingService names server spans; empty disables tracing.
	TracingService string
}

// Server holds the dataset being served and the outcome of the last
// collection run. Both are swapped atomically and read without locks.
type Server struct {
	cfg       Config
	health    *health.Manager
	startedAt time.Time

	dataset atomic.Pointer[analytics.Dataset]
	lastRun atomic.Pointer[jobs.Status]
}

// New creates a server with an empty dataset. A nil health manager serves
// health endpoints with no component checks.
func New(cfg Config, hm *health.Manager) *Server {
	if hm == nil {
		hm = health.NewManager(cfg.Version)
	}
	s := &Server{cfg: cfg, health: hm, startedAt: time.Now()}
	s.dataset.Store(analytics.NewDataset())
	return s
}

// SetDataset replaces the dataset being served. The caller must not modify
// ds afterwards.
func (s *Server) SetDataset(ds *analytics.Dataset) {
	if ds == nil {
		ds = analytics.NewDataset()
	}
	s.dataset.Store(ds)
	logger := xglog.WithComponent("api")
	logger.Debug().
		Str(xglog.FieldEvent, "api.dataset_swapped").
		Int("repositories", ds.Len()).
		Msg("serving new dataset")
}

// Dataset returns the dataset being served.
func (s *Server) Dataset() *analytics.Dataset { return s.dataset.Load() }

// RecordRun stores the status of a finished collection run.
func (s *Server) RecordRun(st *jobs.Status) {
	if st != nil {
		s.lastRun.Store(st)
	}
}

// LastRun returns the status of the last collection run, nil before the first.
func (s *Server) LastRun() *jobs.Status { return s.lastRun.Load() }

// LastRunInfo returns when the last run finished and its error, in the form
// health.NewLastRunChecker expects.
func (s *Server) LastRunInfo() (time.Time, string) {
	st := s.lastRun.Load()
	if st == nil {
		return time.Time{}, ""
	}
	return st.FinishedAt, st.Error
}

// Version implements v1.Source.
func (s *Server) Version() string { return s.cfg.Version }

// StartedAt implements v1.Source.
func (s *Server) StartedAt() time.Time { return s.startedAt }

// Handler builds the router. Health endpoints and metrics sit outside the rate limit.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		middleware.ApplyStack(r, middleware.StackConfig{
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        s.cfg.TracingService,
			EnableLogging:         true,
			RateLimit:             s.cfg.RateLimit,
		})
		r.Route("/api/v1", v1.NewHandler(s).Routes)
	})

	r.NotFound(v1.NotFound)
	r.MethodNotAllowed(v1.MethodNotAllowed)
	return r
}
