// SPDX-License-Identifier: MIT

package config

import "time"

// Default returns the configuration used when neither file nor ENV set a value.
func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			BaseURL:          "https://api.github.com",
			HourlyRateLimit:  5000,
			Timeout:          30 * time.Second,
			CacheTTL:         time.Hour,
			BreakerThreshold: 5,
			BreakerReset:     time.Minute,
			MaxRateLimitWait: 15 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "csv",
			DataDir: "data",
		},
		Cache: CacheConfig{
			Backend:         "memory",
			CleanupInterval: 5 * time.Minute,
			MaxBytes:        128 << 20,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "gla:",
			},
		},
		Collect: CollectConfig{
			Sorts:           []string{"stars", ""},
			MaxRepositories: 1000,
			Releases:        12,
			Concurrency:     4,
		},
		API: APIConfig{
			Listen:          ":8080",
			RateLimit:       120,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
			Environment: "production",
		},
	}
}
