// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
)

// Collector runs one search collection into a dataset.
type Collector interface {
	CollectForSearch(ctx context.Context, ds *analytics.Dataset, query string, opts analytics.CollectOptions) (analytics.CollectResult, error)
}

// DatasetStore persists the dataset between steps.
type DatasetStore interface {
	Load(ctx context.Context) (*analytics.Dataset, error)
	Save(ctx context.Context, ds *analytics.Dataset) error
}

// Deps holds the dependencies of a collection run.
type Deps struct {
	Collector Collector
	Store     DatasetStore
	Clock     func() time.Time
	// OnSaved, when set, receives a copy of the dataset after every save.
	OnSaved func(*analytics.Dataset)
}

// Options controls a collection run.
type Options struct {
	Queries         []string // DefaultQueries when empty
	Sorts           []string // DefaultSorts when empty; "" is best match
	Update          bool     // re-collect repositories already stored
	MaxRepositories int      // per query and sort
	Releases        int      // time-spaced releases per language matrix
}

// Status summarises a collection run.
type Status struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Duration     time.Duration `json:"duration_ns"`
	Steps        int           `json:"steps"`
	FailedSteps  int           `json:"failed_steps"`
	Found        int           `json:"found"`
	Processed    int           `json:"processed"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Repositories int           `json:"repositories"`
	Error        string        `json:"error,omitempty"`
}

func (s *Status) add(r analytics.CollectResult) {
	s.Steps++
	s.Found += r.Found
	s.Processed += r.Processed
	s.Skipped += r.SkippedExisting + r.SkippedNoRelease
	s.Failed += r.Failed
}
