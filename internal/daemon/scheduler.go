// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

// RunFunc runs one collection.
type RunFunc func(ctx context.Context, opts jobs.Options) (*jobs.Status, error)

// Scheduler runs collections one at a time: optionally once at start, then
// every interval. Reconfiguration restarts the wait.
type Scheduler struct {
	run        RunFunc
	onFinished func(*jobs.Status)
	logger     zerolog.Logger

	mu       sync.Mutex
	interval time.Duration
	onStart  bool
	opts     jobs.Options

	reset chan struct{}
}

// NewScheduler creates a scheduler for cfg. onFinished, when set, receives
// the status of every run, failed runs included.
func NewScheduler(run RunFunc, cfg config.CollectConfig, onFinished func(*jobs.Status)) *Scheduler {
	s := &Scheduler{
		run:        run,
		onFinished: onFinished,
		logger:     xglog.WithComponent("scheduler"),
		reset:      make(chan struct{}, 1),
	}
	s.set(cfg)
	return s
}

// OptionsFrom maps the collect configuration onto run options.
func OptionsFrom(cfg config.CollectConfig) jobs.Options {
	return jobs.Options{
		Queries:         cfg.Queries,
		Sorts:           cfg.Sorts,
		Update:          cfg.Update,
		MaxRepositories: cfg.MaxRepositories,
		Releases:        cfg.Releases,
	}
}

func (s *Scheduler) set(cfg config.CollectConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = cfg.Interval
	s.onStart = cfg.OnStart
	s.opts = OptionsFrom(cfg)
}

// Apply switches to cfg. A running collection keeps its options; the next
// one uses the new ones.
func (s *Scheduler) Apply(cfg config.CollectConfig) {
	s.mu.Lock()
	changed := s.interval != cfg.Interval
	s.mu.Unlock()
	s.set(cfg)
	if changed {
		s.logger.Info().Dur("interval", cfg.Interval).Msg("collection interval changed")
		select {
		case s.reset <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) snapshot() (time.Duration, jobs.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval, s.opts
}

// Run blocks until ctx is done. Collection failures are logged, never
// returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	onStart := s.onStart
	s.mu.Unlock()
	if onStart {
		s.runOnce(ctx)
	}

	for {
		interval, _ := s.snapshot()
		var (
			timer *time.Timer
			tick  <-chan time.Time
		)
		if interval > 0 {
			timer = time.NewTimer(interval)
			tick = timer.C
			s.logger.Debug().Time("next_run", time.Now().Add(interval)).Msg("next collection scheduled")
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-s.reset:
			if timer != nil {
				timer.Stop()
			}
		case <-tick:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, opts := s.snapshot()
	s.logger.Info().Str(xglog.FieldEvent, "scheduler.run_start").Msg("starting scheduled collection")

	status, err := s.run(ctx, opts)
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "scheduler.run_failed").Msg("scheduled collection failed")
	}
	if status != nil && s.onFinished != nil {
		s.onFinished(status)
	}
}
