// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/api"
	"github.com/kerryghan-relot/github-language-analysis/internal/cache"
	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/github"
	"github.com/kerryghan-relot/github-language-analysis/internal/health"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/storage"
	"github.com/kerryghan-relot/github-language-analysis/internal/telemetry"
	"github.com/kerryghan-relot/github-language-analysis/internal/version"
)

const (
	serviceName       = "gla"
	githubCheckTTL    = time.Minute
	storeCheckTimeout = 2 * time.Second
)

// Runtime holds the components built from one configuration.
type Runtime struct {
	Config    config.Config
	Telemetry *telemetry.Provider
	Cache     cache.Cache
	GitHub    *github.Client
	Collector *analytics.Collector
	Store     storage.Store
}

// Bootstrap builds every component of cfg. Close releases them. On error the
// components built so far are released and no runtime is returned.
func Bootstrap(ctx context.Context, cfg config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}
	if err := rt.build(ctx); err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) build(ctx context.Context) error {
	cfg := rt.Config
	logger := xglog.WithComponent("bootstrap")

	var err error
	rt.Telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = filepath.Join(cfg.Storage.DataDir, "cache")
	}
	rt.Cache, err = cache.New(cache.Config{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		MaxBytes:        cfg.Cache.MaxBytes,
		Badger:          cache.BadgerConfig{Dir: cacheDir},
		Redis: cache.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		},
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if cfg.GitHub.Token == "" {
		logger.Warn().Str(xglog.FieldEvent, "bootstrap.no_token").Msg("no GitHub token configured; unauthenticated requests are limited to 60 per hour")
	}
	rt.GitHub = github.New(github.Options{
		BaseURL:          cfg.GitHub.BaseURL,
		Token:            cfg.GitHub.Token,
		HourlyRateLimit:  cfg.GitHub.HourlyRateLimit,
		Timeout:          cfg.GitHub.Timeout,
		Cache:            rt.Cache,
		CacheTTL:         cfg.GitHub.CacheTTL,
		BreakerThreshold: cfg.GitHub.BreakerThreshold,
		BreakerReset:     cfg.GitHub.BreakerReset,
		MaxRateLimitWait: cfg.GitHub.MaxRateLimitWait,
	})
	rt.Collector = analytics.NewCollector(rt.GitHub, cfg.Collect.Concurrency)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	rt.Store, err = storage.New(ctx, storage.Config{
		Backend:    cfg.Storage.Backend,
		Dir:        cfg.Storage.DataDir,
		SQLitePath: cfg.Storage.SQLitePath,
		PruneStale: cfg.Storage.PruneStale,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "bootstrap.ready").
		Str(xglog.FieldBackend, storage.BackendOf(rt.Store)).
		Str("cache", cfg.Cache.Backend).
		Str(xglog.FieldPath, cfg.Storage.DataDir).
		Msg("runtime ready")
	return nil
}

// Collect runs one collection against the runtime's store.
func (rt *Runtime) Collect(ctx context.Context, opts jobs.Options, onSaved func(*analytics.Dataset)) (*jobs.Status, error) {
	return jobs.Run(ctx, jobs.Deps{
		Collector: rt.Collector,
		Store:     rt.Store,
		OnSaved:   onSaved,
	}, opts)
}

// HealthManager registers a checker for every component. lastRun may be nil.
func (rt *Runtime) HealthManager(lastRun func() (time.Time, string)) *health.Manager {
	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewGitHubChecker(rt.GitHub, githubCheckTTL))
	hm.RegisterChecker(health.NewDataDirChecker(rt.Config.Storage.DataDir))

	if c, ok := rt.Store.(storage.Checker); ok {
		hm.RegisterChecker(health.NewFuncChecker("store", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
			defer cancel()
			return c.Check(ctx)
		}))
	}
	if hc, ok := rt.Cache.(interface{ HealthCheck(context.Context) error }); ok {
		hm.RegisterChecker(health.NewFuncChecker("cache", hc.HealthCheck))
	}
	if lastRun != nil {
		hm.RegisterChecker(health.NewLastRunChecker(lastRun, 2*rt.Config.Collect.Interval))
	}
	return hm
}

// Close releases the store, the cache and the tracer provider.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	if rt.Cache != nil {
		errs = append(errs, rt.Cache.Close())
	}
	if rt.Telemetry != nil {
		errs = append(errs, rt.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Serve runs serve mode until ctx is cancelled: the stored dataset is served
// right away and replaced after every save of a scheduled collection.
func Serve(ctx context.Context, rt *Runtime, holder *config.Holder) error {
	cfg := rt.Config
	logger := xglog.WithComponent("daemon")

	var srv *api.Server
	hm := rt.HealthManager(func() (time.Time, string) { return srv.LastRunInfo() })
	srv = api.New(api.Config{
		Version:        version.Version,
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracingService(cfg),
	}, hm)

	ds, err := rt.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	srv.SetDataset(ds)
	logger.Info().Str(xglog.FieldEvent, "daemon.dataset_loaded").Int("repositories", ds.Len()).Msg("loaded stored dataset")

	mgr, err := NewManager(ServerConfig{
		ListenAddr:      cfg.API.Listen,
		ReadTimeout:     cfg.API.ReadTimeout,
		WriteTimeout:    cfg.API.WriteTimeout,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
	}, srv.Handler())
	if err != nil {
		return err
	}

	// The scheduler idles while the interval is 0; a reload can enable it.
	sched := NewScheduler(func(ctx context.Context, opts jobs.Options) (*jobs.Status, error) {
		return rt.Collect(ctx, opts, srv.SetDataset)
	}, cfg.Collect, srv.RecordRun)

	return NewApp(mgr, holder, sched).Run(ctx)
}

func tracingService(cfg config.Config) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return serviceName
}
