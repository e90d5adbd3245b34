// SPDX-License-Identifier: MIT

package v1_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	v1 "github.com/kerryghan-relot/github-language-analysis/internal/api/v1"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ds      *analytics.Dataset
	lastRun *jobs.Status
}

func (f *fakeSource) Dataset() *analytics.Dataset { return f.ds }
func (f *fakeSource) LastRun() *jobs.Status       { return f.lastRun }
func (f *fakeSource) Version() string             { return "v1.2.3" }
func (f *fakeSource) StartedAt() time.Time        { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func testDataset() *analytics.Dataset {
	ds := analytics.NewDataset()
	ds.Put(analytics.Summary{
		Name:      "golang/go",
		CreatedAt: day(2014, 8, 19),
		UpdatedAt: day(2025, 1, 10),
		StarCount: 120000,
		Topics:    []string{"go", "language"},
	}, analytics.Matrix{Rows: []analytics.MatrixRow{
		{Date: day(2023, 2, 1), Shares: map[string]float64{".go": 0.9, ".s": 0.1}},
		{Date: day(2024, 2, 6), Shares: map[string]float64{".go": 0.95, ".s": 0.05, ".c": 0}},
	}})
	ds.Put(analytics.Summary{
		Name:      "vuejs/core",
		CreatedAt: day(2018, 6, 12),
		UpdatedAt: day(2025, 1, 9),
		StarCount: 47000,
		Topics:    []string{"Vue", "frontend"},
	}, analytics.Matrix{Rows: []analytics.MatrixRow{
		{Date: day(2024, 1, 1), Shares: map[string]float64{".ts": 0.85, ".js": 0.15}},
	}})
	ds.Put(analytics.Summary{Name: "octo/empty"}, analytics.Matrix{})
	return ds
}

func newRouter(src v1.Source) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", v1.NewHandler(src).Routes)
	r.NotFound(v1.NotFound)
	return r
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestHandleStatus(t *testing.T) {
	src := &fakeSource{ds: testDataset()}
	h := newRouter(src)

	var resp v1.StatusResponse
	rec := get(t, h, "/api/v1/status", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.Equal(t, 3, resp.Repositories)
	assert.Nil(t, resp.LastRun)

	src.lastRun = &jobs.Status{RunID: "run-1", Processed: 7, Error: "circuit breaker is open"}
	resp = v1.StatusResponse{}
	get(t, h, "/api/v1/status", &resp)
	require.NotNil(t, resp.LastRun)
	assert.Equal(t, "run-1", resp.LastRun.RunID)
	assert.Equal(t, 7, resp.LastRun.Processed)
}

func TestHandleRepositories(t *testing.T) {
	h := newRouter(&fakeSource{ds: testDataset()})

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantTotal int
		wantNames []string
	}{
		{"all in insertion order", "/api/v1/repositories", http.StatusOK, 3, []string{"golang/go", "vuejs/core", "octo/empty"}},
		{"topic compared case-insensitively", "/api/v1/repositories?topic=vue", http.StatusOK, 1, []string{"vuejs/core"}},
		{"limit truncates but total counts all", "/api/v1/repositories?limit=1", http.StatusOK, 3, []string{"golang/go"}},
		{"unknown topic", "/api/v1/repositories?topic=cobol", http.StatusOK, 0, []string{}},
		{"limit zero", "/api/v1/repositories?limit=0", http.StatusBadRequest, 0, nil},
		{"limit too large", "/api/v1/repositories?limit=5000", http.StatusBadRequest, 0, nil},
		{"limit not a number", "/api/v1/repositories?limit=ten", http.StatusBadRequest, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode != http.StatusOK {
				var errResp v1.ErrorResponse
				rec := get(t, h, tt.target, &errResp)
				assert.Equal(t, tt.wantCode, rec.Code)
				assert.Equal(t, "bad_request", errResp.Error)
				return
			}
			var resp v1.RepositoryList
			rec := get(t, h, tt.target, &resp)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantTotal, resp.Total)
			names := []string{}
			for _, r := range resp.Repositories {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestHandleRepository(t *testing.T) {
	h := newRouter(&fakeSource{ds: testDataset()})

	var repo v1.Repository
	rec := get(t, h, "/api/v1/repositories/Golang/Go", &repo)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "golang/go", repo.Name)
	assert.Equal(t, "golang", repo.Owner)
	assert.Equal(t, "go", repo.Repo)
	assert.Equal(t, "2014-08-19", repo.CreatedAt)
	assert.Equal(t, 120000, repo.StarCount)
	assert.Equal(t, []string{"go", "language"}, repo.Topics)

	var empty v1.Repository
	get(t, h, "/api/v1/repositories/octo/empty", &empty)
	assert.Equal(t, []string{}, empty.Topics)
	assert.Empty(t, empty.CreatedAt)

	var errResp v1.ErrorResponse
	rec = get(t, h, "/api/v1/repositories/nobody/nothing", &errResp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestHandleRepositoryLanguages(t *testing.T) {
	h := newRouter(&fakeSource{ds: testDataset()})

	var resp v1.RepositoryLanguages
	rec := get(t, h, "/api/v1/repositories/golang/go/languages", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "golang/go", resp.Name)
	require.Len(t, resp.Releases, 2)
	assert.Equal(t, "2023-02-01", resp.Releases[0].Date)
	assert.Equal(t, map[string]float64{".go": 0.95, ".s": 0.05}, resp.Releases[1].Shares, "zero shares omitted")

	var empty v1.RepositoryLanguages
	get(t, h, "/api/v1/repositories/octo/empty/languages", &empty)
	assert.Empty(t, empty.Releases)

	rec = get(t, h, "/api/v1/repositories/nobody/nothing/languages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLanguages(t *testing.T) {
	h := newRouter(&fakeSource{ds: analytics.NewDataset()})

	var resp []v1.Family
	get(t, h, "/api/v1/languages", &resp)
	require.NotEmpty(t, resp)
	assert.Equal(t, "web", string(resp[0].Family))
	assert.Contains(t, resp[0].Extensions, ".js")

	total := 0
	for _, f := range resp {
		total += len(f.Extensions)
	}
	assert.Equal(t, 46, total)
}

func TestHandleTrends(t *testing.T) {
	h := newRouter(&fakeSource{ds: testDataset()})

	var points []v1.TrendPoint
	rec := get(t, h, "/api/v1/trends", &points)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, points, 2)
	assert.Equal(t, 2023, points[0].Year)
	assert.Equal(t, 2024, points[1].Year)
	assert.Equal(t, 2, points[1].Repositories)
	assert.Equal(t, 2, points[1].Releases)

	var ranking v1.YearRanking
	get(t, h, "/api/v1/trends?year=2024", &ranking)
	require.NotEmpty(t, ranking.Extensions)
	assert.Equal(t, ".go", ranking.Extensions[0].Extension)
	assert.Equal(t, "systems", string(ranking.Extensions[0].Family))

	rec = get(t, h, "/api/v1/trends?year=1999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = get(t, h, "/api/v1/trends?year=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFound(t *testing.T) {
	var errResp v1.ErrorResponse
	rec := get(t, newRouter(&fakeSource{ds: analytics.NewDataset()}), "/api/v2/status", &errResp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errResp.Error)
}
