// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gla_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gla_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gla_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "route", "status"})
)

// Metrics records Prometheus metrics for HTTP requests. Requests are labelled
// by chi route pattern to keep cardinality bounded.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			code := strconv.Itoa(status)
			route := routePattern(r)

			httpRequestDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
			if n := ww.BytesWritten(); n > 0 {
				httpResponseSize.WithLabelValues(r.Method, route, code).Observe(float64(n))
			}
			metrics.IncHTTPRequest(route, code)
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched" for requests
// that hit no route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
