// SPDX-License-Identifier: MIT

// Package v1 implements the /api/v1 routes.
package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	"github.com/kerryghan-relot/github-language-analysis/internal/language"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Source provides the data served by the handlers.
type Source interface {
	Dataset() *analytics.Dataset
	LastRun() *jobs.Status
	Version() string
	StartedAt() time.Time
}

// Handler holds v1 API dependencies.
type Handler struct {
	src Source
}

// NewHandler creates a v1 handler.
func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

// Routes registers the v1 routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.HandleStatus)
	r.Get("/repositories", h.HandleRepositories)
	r.Get("/repositories/{owner}/{repo}", h.HandleRepository)
	r.Get("/repositories/{owner}/{repo}/languages", h.HandleRepositoryLanguages)
	r.Get("/languages", h.HandleLanguages)
	r.Get("/trends", h.HandleTrends)
}

// HandleStatus implements GET /api/v1/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:       "ok",
		Version:      h.src.Version(),
		StartedAt:    h.src.StartedAt(),
		Repositories: h.src.Dataset().Len(),
		LastRun:      h.src.LastRun(),
	})
}

// HandleRepositories implements GET /api/v1/repositories. The optional topic
// filter is compared normalised; limit defaults to DefaultLimit.
func (h *Handler) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	topic := r.URL.Query().Get("topic")

	var matched []analytics.Summary
	for _, s := range h.src.Dataset().Summaries() {
		if topic == "" || s.HasTopic(topic) {
			matched = append(matched, s)
		}
	}

	resp := RepositoryList{Total: len(matched), Repositories: make([]Repository, 0, min(limit, len(matched)))}
	for _, s := range matched[:min(limit, len(matched))] {
		resp.Repositories = append(resp.Repositories, toRepository(s))
	}

	logger := xglog.WithComponentFromContext(r.Context(), "api.v1")
	logger.Debug().
		Str(xglog.FieldEvent, "api.repositories_listed").
		Str("topic", topic).
		Int("total", resp.Total).
		Msg("repositories listed")
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleRepository implements GET /api/v1/repositories/{owner}/{repo}.
func (h *Handler) HandleRepository(w http.ResponseWriter, r *http.Request) {
	name := repositoryName(r)
	s, ok := h.src.Dataset().Get(name)
	if !ok {
		writeNotFound(w, r, "repository "+name+" has not been collected")
		return
	}
	writeJSON(w, r, http.StatusOK, toRepository(s))
}

// HandleRepositoryLanguages implements GET /api/v1/repositories/{owner}/{repo}/languages.
func (h *Handler) HandleRepositoryLanguages(w http.ResponseWriter, r *http.Request) {
	name := repositoryName(r)
	ds := h.src.Dataset()
	s, ok := ds.Get(name)
	if !ok {
		writeNotFound(w, r, "repository "+name+" has not been collected")
		return
	}
	m, _ := ds.Matrix(name)
	writeJSON(w, r, http.StatusOK, toLanguages(s.Name, m))
}

// HandleLanguages implements GET /api/v1/languages.
func (h *Handler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	families := language.Families()
	resp := make([]Family, 0, len(families))
	for _, f := range families {
		resp = append(resp, Family{Family: f, Extensions: language.Extensions(f)})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleTrends implements GET /api/v1/trends. With ?year it ranks the
// extensions of that year instead.
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ds := h.src.Dataset()

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1970 || year > 9999 {
			writeBadRequest(w, r, fmt.Sprintf("invalid year %q", raw))
			return
		}
		ranked := analytics.Rank(ds, year)
		if ranked == nil {
			writeNotFound(w, r, fmt.Sprintf("no release published in %d", year))
			return
		}
		resp := YearRanking{Year: year, Extensions: make([]RankedExtension, 0, len(ranked))}
		for _, rk := range ranked {
			resp.Extensions = append(resp.Extensions, RankedExtension{Extension: rk.Extension, Family: rk.Family, Share: rk.Share})
		}
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	points := analytics.Trends(ds)
	resp := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		resp = append(resp, TrendPoint{Year: p.Year, Repositories: p.Repositories, Releases: p.Releases, Shares: p.Shares})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func repositoryName(r *http.Request) string {
	return chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	return n, nil
}
