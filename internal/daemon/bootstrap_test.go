// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/health"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGitHub(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/repositories":
			searches.Add(1)
			_, _ = w.Write([]byte(`{"total_count":0,"incomplete_results":false,"items":[]}`))
		case "/rate_limit":
			_, _ = w.Write([]byte(`{"resources":{"core":{"limit":5000,"remaining":4321,"reset":1735732800,"used":679}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &searches
}

func testConfig(t *testing.T, baseURL string) config.Config {
	cfg := config.Default()
	cfg.GitHub.BaseURL = baseURL
	cfg.GitHub.Token = "ghp_test"
	cfg.GitHub.HourlyRateLimit = 1_000_000
	cfg.Storage.DataDir = t.TempDir()
	cfg.Cache.Backend = "memory"
	cfg.API.Listen = "127.0.0.1:0"
	return cfg
}

func TestBootstrap_CollectAndHealth(t *testing.T) {
	gh, searches := fakeGitHub(t)
	cfg := testConfig(t, gh.URL)
	cfg.Storage.Backend = "sqlite"

	rt, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close(context.Background())) }()

	var saved atomic.Int32
	status, err := rt.Collect(context.Background(), jobs.Options{
		Queries: []string{"gaming", "robotics"},
		Sorts:   []string{"stars"},
	}, func(*analytics.Dataset) { saved.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 2, status.Steps)
	assert.Equal(t, int32(2), searches.Load())
	assert.Equal(t, int32(2), saved.Load())

	finished := time.Now()
	hm := rt.HealthManager(func() (time.Time, string) { return finished, "" })
	resp := hm.Health(context.Background(), true)
	assert.Equal(t, health.StatusHealthy, resp.Status, "%+v", resp.Checks)
	for _, name := range []string{"github", "data_dir", "store", "last_collection"} {
		assert.Contains(t, resp.Checks, name)
	}
	assert.Equal(t, "4321/5000 requests remaining", resp.Checks["github"].Message)
}

func TestBootstrap_BadgerCache(t *testing.T) {
	gh, _ := fakeGitHub(t)
	cfg := testConfig(t, gh.URL)
	cfg.Cache.Backend = "badger"

	rt, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(cfg.Storage.DataDir, "cache"))

	resp := rt.HealthManager(nil).Health(context.Background(), true)
	require.Contains(t, resp.Checks, "cache")
	assert.Equal(t, health.StatusHealthy, resp.Checks["cache"].Status)

	require.NoError(t, rt.Close(context.Background()))
}

func TestBootstrap_FailuresReturnErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, cfg *config.Config)
		want   string
	}{
		{"unknown cache backend", func(_ *testing.T, cfg *config.Config) {
			cfg.Cache.Backend = "memcached"
		}, "cache"},
		{"redis unreachable", func(_ *testing.T, cfg *config.Config) {
			cfg.Cache.Backend = "redis"
			cfg.Cache.Redis.Addr = "127.0.0.1:1"
		}, "redis connection failed"},
		{"data dir is a file", func(t *testing.T, cfg *config.Config) {
			file := filepath.Join(t.TempDir(), "data")
			require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
			cfg.Storage.DataDir = file
		}, "create data dir"},
		{"unknown storage backend", func(_ *testing.T, cfg *config.Config) {
			cfg.Storage.Backend = "parquet"
		}, "storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://127.0.0.1:1")
			tt.modify(t, &cfg)

			var (
				rt  *Runtime
				err error
			)
			require.NotPanics(t, func() { rt, err = Bootstrap(context.Background(), cfg) })
			require.ErrorContains(t, err, tt.want)
			assert.Nil(t, rt)
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	gh, searches := fakeGitHub(t)
	cfg := testConfig(t, gh.URL)
	cfg.Collect.OnStart = true
	cfg.Collect.Queries = []string{"nlp"}
	cfg.Collect.Sorts = []string{""}

	rt, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = rt.Close(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, rt, nil) }()

	require.Eventually(t, func() bool { return searches.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
