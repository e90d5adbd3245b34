// SPDX-License-Identifier: MIT

package config

import (
	"slices"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/validate"
	"github.com/rs/zerolog"
)

var (
	storageBackends = []string{"csv", "sqlite"}
	cacheBackends   = []string{"none", "memory", "redis", "badger"}
	otlpProtocols   = []string{"grpc", "http"}
	searchSorts     = []string{"", "stars", "forks", "help-wanted-issues", "updated"}
)

// Validate checks the configuration and reports every problem at once.
func Validate(cfg Config) error {
	v := validate.New()

	v.URL("github.base_url", cfg.GitHub.BaseURL, []string{"http", "https"})
	v.Range("github.hourly_rate_limit", cfg.GitHub.HourlyRateLimit, 1, 1_000_000)
	v.MinDuration("github.timeout", cfg.GitHub.Timeout, time.Second)
	v.NonNegativeDuration("github.cache_ttl", cfg.GitHub.CacheTTL)
	v.Positive("github.breaker_threshold", cfg.GitHub.BreakerThreshold)
	v.MinDuration("github.breaker_reset", cfg.GitHub.BreakerReset, time.Second)

	v.OneOf("storage.backend", cfg.Storage.Backend, storageBackends)
	v.NotEmpty("storage.data_dir", cfg.Storage.DataDir)

	v.OneOf("cache.backend", cfg.Cache.Backend, cacheBackends)
	if cfg.Cache.Backend == "redis" {
		v.ListenAddr("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Range("cache.redis.db", cfg.Cache.Redis.DB, 0, 15)
	}
	if cfg.Cache.MaxBytes < 0 {
		v.AddError("cache.max_bytes", "value cannot be negative", cfg.Cache.MaxBytes)
	}

	for _, s := range cfg.Collect.Sorts {
		if !slices.Contains(searchSorts, s) {
			v.OneOf("collect.sorts", s, searchSorts)
		}
	}
	v.Range("collect.max_repositories", cfg.Collect.MaxRepositories, 1, 1000)
	v.Range("collect.releases", cfg.Collect.Releases, 1, 100)
	v.Range("collect.concurrency", cfg.Collect.Concurrency, 1, 64)
	v.NonNegativeDuration("collect.interval", cfg.Collect.Interval)
	if cfg.Collect.Interval > 0 {
		v.MinDuration("collect.interval", cfg.Collect.Interval, time.Minute)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	if cfg.API.RateLimit < 0 {
		v.AddError("api.rate_limit", "value cannot be negative", cfg.API.RateLimit)
	}
	v.NonNegativeDuration("api.read_timeout", cfg.API.ReadTimeout)
	v.NonNegativeDuration("api.write_timeout", cfg.API.WriteTimeout)
	v.NonNegativeDuration("api.shutdown_timeout", cfg.API.ShutdownTimeout)

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.OneOf("telemetry.protocol", cfg.Telemetry.Protocol, otlpProtocols)
		if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
			v.AddError("telemetry.sample_rate", "value must be between 0 and 1", cfg.Telemetry.SampleRate)
		}
	}

	return v.Err()
}
