// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys. GITHUB_TOKEN is read for compatibility with existing
// .env files; GLA_GITHUB_TOKEN wins when both are set.
const (
	EnvGitHubToken           = "GITHUB_TOKEN"
	EnvGLAGitHubToken        = "GLA_GITHUB_TOKEN"
	EnvGitHubBaseURL         = "GLA_GITHUB_BASE_URL"
	EnvGitHubHourlyRateLimit = "GLA_GITHUB_HOURLY_RATE_LIMIT"
	EnvGitHubTimeout         = "GLA_GITHUB_TIMEOUT"
	EnvGitHubCacheTTL        = "GLA_GITHUB_CACHE_TTL"
	EnvGitHubMaxWait         = "GLA_GITHUB_MAX_RATE_LIMIT_WAIT"
	EnvDataDir               = "GLA_DATA_DIR"
	EnvStorageBackend        = "GLA_STORAGE_BACKEND"
	EnvSQLitePath            = "GLA_SQLITE_PATH"
	EnvPruneStale            = "GLA_PRUNE_STALE"
	EnvCacheBackend          = "GLA_CACHE_BACKEND"
	EnvCacheDir              = "GLA_CACHE_DIR"
	EnvRedisAddr             = "GLA_REDIS_ADDR"
	EnvRedisPassword         = "GLA_REDIS_PASSWORD"
	EnvRedisDB               = "GLA_REDIS_DB"
	EnvCollectQueries        = "GLA_COLLECT_QUERIES"
	EnvCollectInterval       = "GLA_COLLECT_INTERVAL"
	EnvCollectReleases       = "GLA_COLLECT_RELEASES"
	EnvCollectMaxRepos       = "GLA_COLLECT_MAX_REPOSITORIES"
	EnvCollectUpdate         = "GLA_COLLECT_UPDATE"
	EnvAPIListen             = "GLA_API_LISTEN"
	EnvAPIRateLimit          = "GLA_API_RATE_LIMIT"
	EnvLogLevel              = "GLA_LOG_LEVEL"
	EnvTelemetryEnabled      = "GLA_TELEMETRY_ENABLED"
	EnvTelemetryEndpoint     = "GLA_TELEMETRY_ENDPOINT"
	EnvTelemetryProtocol     = "GLA_TELEMETRY_PROTOCOL"
	EnvTelemetryInsecure     = "GLA_TELEMETRY_INSECURE"
)

// LoadDotEnv loads variables from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored; with no arguments ".env" is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// envReader reads typed values from the environment and remembers invalid ones.
type envReader struct {
	logger   zerolog.Logger
	lookup   func(string) (string, bool)
	consumed map[string]struct{}
	errs     []error
}

func newEnvReader(lookup func(string) (string, bool)) *envReader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envReader{
		logger:   log.WithComponent("config"),
		lookup:   lookup,
		consumed: make(map[string]struct{}),
	}
}

// get returns the trimmed value of key; empty values count as unset.
func (r *envReader) get(key string) (string, bool) {
	r.consumed[key] = struct{}{}
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	if isSensitiveKey(key) {
		r.logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	} else {
		r.logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	}
	return v, true
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = i
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}

// list splits a comma separated value.
func (r *envReader) list(key string, dst *[]string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) apply(cfg *Config) error {
	r.str(EnvGitHubToken, &cfg.GitHub.Token)
	r.str(EnvGLAGitHubToken, &cfg.GitHub.Token)
	r.str(EnvGitHubBaseURL, &cfg.GitHub.BaseURL)
	r.integer(EnvGitHubHourlyRateLimit, &cfg.GitHub.HourlyRateLimit)
	r.duration(EnvGitHubTimeout, &cfg.GitHub.Timeout)
	r.duration(EnvGitHubCacheTTL, &cfg.GitHub.CacheTTL)
	r.duration(EnvGitHubMaxWait, &cfg.GitHub.MaxRateLimitWait)

	r.str(EnvDataDir, &cfg.Storage.DataDir)
	r.str(EnvStorageBackend, &cfg.Storage.Backend)
	r.str(EnvSQLitePath, &cfg.Storage.SQLitePath)
	r.boolean(EnvPruneStale, &cfg.Storage.PruneStale)

	r.str(EnvCacheBackend, &cfg.Cache.Backend)
	r.str(EnvCacheDir, &cfg.Cache.Dir)
	r.str(EnvRedisAddr, &cfg.Cache.Redis.Addr)
	r.str(EnvRedisPassword, &cfg.Cache.Redis.Password)
	r.integer(EnvRedisDB, &cfg.Cache.Redis.DB)

	r.list(EnvCollectQueries, &cfg.Collect.Queries)
	r.duration(EnvCollectInterval, &cfg.Collect.Interval)
	r.integer(EnvCollectReleases, &cfg.Collect.Releases)
	r.integer(EnvCollectMaxRepos, &cfg.Collect.MaxRepositories)
	r.boolean(EnvCollectUpdate, &cfg.Collect.Update)

	r.str(EnvAPIListen, &cfg.API.Listen)
	r.integer(EnvAPIRateLimit, &cfg.API.RateLimit)

	r.str(EnvLogLevel, &cfg.Log.Level)

	r.boolean(EnvTelemetryEnabled, &cfg.Telemetry.Enabled)
	r.str(EnvTelemetryEndpoint, &cfg.Telemetry.Endpoint)
	r.str(EnvTelemetryProtocol, &cfg.Telemetry.Protocol)
	r.boolean(EnvTelemetryInsecure, &cfg.Telemetry.Insecure)

	return errors.Join(r.errs...)
}
