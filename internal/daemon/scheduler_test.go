// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu       sync.Mutex
	opts     []jobs.Options
	finished []*jobs.Status
	err      error
}

func (r *recorder) run(_ context.Context, opts jobs.Options) (*jobs.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = append(r.opts, opts)
	st := &jobs.Status{RunID: "run"}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st, r.err
}

func (r *recorder) onFinished(st *jobs.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, st)
}

func (r *recorder) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opts)
}

func TestOptionsFrom(t *testing.T) {
	opts := OptionsFrom(config.CollectConfig{
		Queries:         []string{"gaming"},
		Sorts:           []string{""},
		Update:          true,
		MaxRepositories: 50,
		Releases:        6,
	})
	assert.Equal(t, jobs.Options{Queries: []string{"gaming"}, Sorts: []string{""}, Update: true, MaxRepositories: 50, Releases: 6}, opts)
}

func TestScheduler_OnStartWithoutInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{err: errors.New("rate limited")}
	s := NewScheduler(rec.run, config.CollectConfig{OnStart: true, Queries: []string{"nlp"}}, rec.onFinished)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.runs() == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, rec.runs(), "no interval means a single run")
	assert.Equal(t, []string{"nlp"}, rec.opts[0].Queries)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, "rate limited", rec.finished[0].Error, "failed runs are reported too")
}

func TestScheduler_Interval(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	s := NewScheduler(rec.run, config.CollectConfig{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.runs() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_ApplyEnablesInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	s := NewScheduler(rec.run, config.CollectConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.runs(), "idle without interval")

	s.Apply(config.CollectConfig{Interval: 10 * time.Millisecond, Queries: []string{"robotics"}})
	require.Eventually(t, func() bool { return rec.runs() >= 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"robotics"}, rec.opts[0].Queries)
}
