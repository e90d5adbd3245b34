// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
})

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Minute})(ok)

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve("192.168.1.1").Code, "request %d", i+1)
	}
	rec := serve("192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, serve("192.168.1.2").Code, "other IPs have their own window")
}

func TestAPIRateLimit_Disabled(t *testing.T) {
	h := APIRateLimit(0)(ok)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	SecurityHeaders("")(ok).ServeHTTP(rec, req)

	assert.Equal(t, DefaultCSP, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/v1/repositories/{owner}/{repo}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	n := testutil.CollectAndCount(httpRequestDuration)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/repositories/golang/go", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, n+1, testutil.CollectAndCount(httpRequestDuration), "one series per route, not per path")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/repositories/torvalds/linux", nil))
	assert.Equal(t, n+1, testutil.CollectAndCount(httpRequestDuration))
}

func TestShouldTrace(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":          false,
		"/readyz":           false,
		"/metrics":          false,
		"/api/v1/languages": true,
	} {
		assert.Equal(t, want, shouldTrace(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/repositories?topic=secret", nil)
	assert.Equal(t, "GET /api/v1/repositories", spanNameFormatter("", req))
	assert.Empty(t, TraceID(req))
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(StackConfig{EnableLogging: true, EnableMetrics: true, RateLimit: 10})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
