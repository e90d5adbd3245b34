// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness endpoints built from component checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// runChecks runs every checker and folds the results into one status.
func (m *Manager) runChecks(ctx context.Context) (Status, map[string]CheckResult) {
	status := StatusHealthy
	checks := make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return status, checks
}

// Health performs a liveness check. Component checks only run when verbose
// is set; the process being able to answer is what counts.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Status, resp.Checks = m.runChecks(ctx)
	}
	return resp
}

// Ready performs a readiness check. Any unhealthy component makes the
// service not ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Status, resp.Checks = m.runChecks(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}

	logger.Debug().
		Str("event", "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}
