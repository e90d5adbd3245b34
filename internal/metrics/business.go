// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Repository outcomes recorded by the collector.
const (
	OutcomeProcessed        = "processed"
	OutcomeSkippedExisting  = "skipped_existing"
	OutcomeSkippedNoRelease = "skipped_no_release"
	OutcomeFailed           = "failed"
)

var (
	// Upstream metrics
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_github_requests_total",
		Help: "GitHub API requests by endpoint and HTTP status class",
	}, []string{"endpoint", "status"}) // status=2xx|4xx|5xx|error|rate_limited

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gla_github_request_duration_seconds",
		Help:    "Latency of GitHub API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gla_github_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the client-side request pacer",
		Buckets: []float64{0, 0.1, 0.25, 0.5, 0.72, 1, 2.5, 5, 10, 60, 600},
	})

	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gla_github_ratelimit_remaining",
		Help: "Remaining requests reported by the last GitHub response",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_github_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	// Collection metrics
	repositoriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_repositories_total",
		Help: "Repositories handled by the collector by outcome",
	}, []string{"outcome"})

	collectionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_collection_runs_total",
		Help: "Collection runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure|cancelled

	collectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gla_collection_duration_seconds",
		Help:    "Duration of a single query collection",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	datasetRepositories = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gla_dataset_repositories",
		Help: "Number of repositories in the current dataset",
	})

	lastCollectionTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gla_last_collection_timestamp_seconds",
		Help: "Unix time of the last completed collection run",
	})

	// Storage metrics
	storeSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_store_saves_total",
		Help: "Dataset saves by backend and outcome",
	}, []string{"backend", "outcome"})

	// API metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gla_http_requests_total",
		Help: "HTTP API requests by route and status code",
	}, []string{"route", "code"})
)

func ObserveGitHubRequest(endpoint, status string, d time.Duration) {
	githubRequestsTotal.WithLabelValues(endpoint, status).Inc()
	githubRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func ObserveRateLimitWait(d time.Duration) { rateLimitWaitSeconds.Observe(d.Seconds()) }
func SetRateLimitRemaining(n int)          { rateLimitRemaining.Set(float64(n)) }

func IncCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncRepository(outcome string) { repositoriesTotal.WithLabelValues(outcome).Inc() }

func IncCollectionRun(outcome string) { collectionRunsTotal.WithLabelValues(outcome).Inc() }

func ObserveCollection(d time.Duration) { collectionDuration.Observe(d.Seconds()) }

func SetDatasetRepositories(n int) { datasetRepositories.Set(float64(n)) }

func SetLastCollection(t time.Time) { lastCollectionTimestamp.Set(float64(t.Unix())) }

func IncStoreSave(backend string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	storeSavesTotal.WithLabelValues(backend, outcome).Inc()
}

func IncHTTPRequest(route, code string) { httpRequestsTotal.WithLabelValues(route, code).Inc() }
