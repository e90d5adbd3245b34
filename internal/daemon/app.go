// SPDX-License-Identifier: MIT

// Package daemon runs the long-lived serve mode: the API server, scheduled
// collections and configuration reloads.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// App owns the runtime lifecycle and delegates the server to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	scheduler    *Scheduler
	reloadSignal os.Signal
}

// NewApp creates an App. cfgHolder and scheduler are optional.
func NewApp(manager Manager, cfgHolder *config.Holder, scheduler *Scheduler) *App {
	return &App{
		logger:       xglog.WithComponent("daemon"),
		manager:      manager,
		cfgHolder:    cfgHolder,
		scheduler:    scheduler,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.Config, 1)
		a.cfgHolder.Subscribe(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hup:
						a.logger.Info().
							Str(xglog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.cfgHolder.Reload(ctx); err != nil {
							a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	if a.scheduler != nil {
		g.Go(func() error { return a.scheduler.Run(ctx) })
	}

	g.Go(func() error { return a.manager.Start(ctx) })

	return g.Wait()
}

// apply hot-applies the settings that do not need a restart.
func (a *App) apply(cfg config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if a.scheduler != nil {
		a.scheduler.Apply(cfg.Collect)
	}
	a.logger.Info().Str(xglog.FieldEvent, "config.applied").Msg("applied reloaded configuration")
}
