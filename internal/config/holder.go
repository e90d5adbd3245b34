// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds the active configuration and swaps it atomically on reload.
type Holder struct {
	mu      sync.RWMutex
	current Config
	loader  *Loader
	logger  zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- Config
}

// NewHolder creates a holder with an already loaded configuration.
func NewHolder(initial Config, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration again. On failure the current
// configuration stays active.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.logChanges(prev, next)
	h.notify(next)
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Subscribe registers ch for reload notifications. Sends never block; a full
// channel misses the update.
func (h *Holder) Subscribe(ch chan<- Config) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg Config) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

// Watch reloads the configuration whenever its file changes, until ctx is
// done. Without a config file it blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str(xglog.FieldEvent, "config.watcher_disabled").Msg("config file watcher disabled (using ENV-only configuration)")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	h.logger.Info().Str(xglog.FieldEvent, "config.watcher_started").Str(xglog.FieldPath, path).Msg("watching config file for changes")

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().Str(xglog.FieldEvent, "config.file_changed").Str("op", event.Op.String()).Msg("config file changed")
				debounce.Reset(reloadDebounce)
			}

		case <-debounce.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.auto_reload_failed").Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

func (h *Holder) logChanges(prev, next Config) {
	if !slices.Equal(prev.Collect.Queries, next.Collect.Queries) {
		h.logger.Info().Strs("old", prev.Collect.Queries).Strs("new", next.Collect.Queries).Msg("config changed: collect.queries")
	}
	if prev.Collect.Interval != next.Collect.Interval {
		h.logger.Info().Dur("old", prev.Collect.Interval).Dur("new", next.Collect.Interval).Msg("config changed: collect.interval")
	}
	if prev.Log.Level != next.Log.Level {
		h.logger.Info().Str("old", prev.Log.Level).Str("new", next.Log.Level).Msg("config changed: log.level")
	}
	if prev.GitHub.Token != next.GitHub.Token {
		h.logger.Info().Str("new", MaskToken(next.GitHub.Token)).Msg("config changed: github.token")
	}
}
