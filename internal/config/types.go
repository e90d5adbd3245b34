// SPDX-License-Identifier: MIT

// Package config loads the application configuration with precedence
// ENV > YAML file > defaults, validates it and supports hot reload.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github" json:"github"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Collect   CollectConfig   `yaml:"collect" json:"collect"`
	API       APIConfig       `yaml:"api" json:"api"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// GitHubConfig configures the GitHub REST client.
type GitHubConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	Token            string        `yaml:"token" json:"token"`
	HourlyRateLimit  int           `yaml:"hourly_rate_limit" json:"hourly_rate_limit"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	CacheTTL         time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	BreakerThreshold int           `yaml:"breaker_threshold" json:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset" json:"breaker_reset"`
	// MaxRateLimitWait bounds how long the client sleeps on an upstream rate
	// limit before failing; negative disables waiting.
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait" json:"max_rate_limit_wait"`
}

// StorageConfig selects the dataset backend.
type StorageConfig struct {
	Backend    string `yaml:"backend" json:"backend"` // csv | sqlite
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	PruneStale bool   `yaml:"prune_stale" json:"prune_stale"`
}

// CacheConfig selects the GitHub response cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend" json:"backend"` // none | memory | redis | badger
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	MaxBytes        int64         `yaml:"max_bytes" json:"max_bytes"` // memory backend only
	Dir             string        `yaml:"dir" json:"dir"`             // badger backend; defaults to <data_dir>/cache
	Redis           RedisConfig   `yaml:"redis" json:"redis"`
}

// RedisConfig is used by the redis cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// CollectConfig describes what a collection run searches.
type CollectConfig struct {
	Queries         []string      `yaml:"queries" json:"queries"`
	Sorts           []string      `yaml:"sorts" json:"sorts"` // "stars", "forks", ...; "" or "best-match" for best match
	Update          bool          `yaml:"update" json:"update"`
	MaxRepositories int           `yaml:"max_repositories" json:"max_repositories"`
	Releases        int           `yaml:"releases" json:"releases"`
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	Interval        time.Duration `yaml:"interval" json:"interval"` // serve mode; 0 disables periodic collection
	OnStart         bool          `yaml:"on_start" json:"on_start"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Listen          string        `yaml:"listen" json:"listen"`
	RateLimit       int           `yaml:"rate_limit" json:"rate_limit"` // requests per minute and client IP; 0 disables
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	Protocol    string  `yaml:"protocol" json:"protocol"` // grpc | http
	Insecure    bool    `yaml:"insecure" json:"insecure"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
	Environment string  `yaml:"environment" json:"environment"`
}
