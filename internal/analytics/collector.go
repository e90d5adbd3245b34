// SPDX-License-Identifier: MIT

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/github"
	"github.com/kerryghan-relot/github-language-analysis/internal/language"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
	"github.com/kerryghan-relot/github-language-analysis/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxRepositories = 1000
	DefaultReleases        = 12
	defaultConcurrency     = 4
)

// GitHubAPI is the part of the GitHub client the collector needs.
type GitHubAPI interface {
	SearchAllRepositories(ctx context.Context, query, sort string) ([]github.Repository, error)
	Releases(ctx context.Context, owner, repo string, opts github.ReleaseOptions) ([]github.Release, error)
	Tree(ctx context.Context, owner, repo, ref string, recursive bool) (*github.Tree, error)
	FileCount(ctx context.Context, owner, repo, branch string) (int, error)
	ReleaseCount(ctx context.Context, owner, repo string) (int, error)
	ContributorCount(ctx context.Context, owner, repo string) (int, error)
	CommitCount(ctx context.Context, owner, repo string) (int, error)
	IssueCount(ctx context.Context, owner, repo string) (int, error)
}

// Collector fills a Dataset from GitHub search results.
type Collector struct {
	Client GitHubAPI
	Logger zerolog.Logger
	// Concurrency bounds the parallel requests issued for one repository.
	// Requests are still paced by the client.
	Concurrency int
}

// NewCollector returns a collector logging under the "collector" component.
func NewCollector(client GitHubAPI, concurrency int) *Collector {
	return &Collector{
		Client:      client,
		Logger:      xglog.WithComponent("collector"),
		Concurrency: concurrency,
	}
}

// CollectOptions tunes one CollectForSearch call.
type CollectOptions struct {
	Sort            string // empty for best match
	Update          bool   // re-collect repositories already in the dataset
	MaxRepositories int
	Releases        int // time-spaced releases per language matrix
}

// CollectResult counts what happened to the search results.
type CollectResult struct {
	Query            string
	Sort             string
	Found            int
	Processed        int
	SkippedExisting  int
	SkippedNoRelease int
	Failed           int
	Duration         time.Duration
}

// Add accumulates other into r.
func (r *CollectResult) Add(other CollectResult) {
	r.Found += other.Found
	r.Processed += other.Processed
	r.SkippedExisting += other.SkippedExisting
	r.SkippedNoRelease += other.SkippedNoRelease
	r.Failed += other.Failed
	r.Duration += other.Duration
}

// errNoRelease marks repositories without any stable release.
var errNoRelease = errors.New("no stable release")

// CollectForSearch searches GitHub for query and adds every result not yet in ds.
// Repositories without stable releases are skipped. A failing repository is
// logged and counted; cancellation, an open circuit breaker and bad
// credentials abort the collection.
func (c *Collector) CollectForSearch(ctx context.Context, ds *Dataset, query string, opts CollectOptions) (result CollectResult, err error) {
	if opts.MaxRepositories <= 0 {
		opts.MaxRepositories = DefaultMaxRepositories
	}
	if opts.Releases <= 0 {
		opts.Releases = DefaultReleases
	}

	start := time.Now()
	result = CollectResult{Query: query, Sort: opts.Sort}
	defer func() {
		result.Duration = time.Since(start)
		metrics.ObserveCollection(result.Duration)
	}()

	logger := xglog.WithContext(ctx, c.Logger).With().
		Str(xglog.FieldQuery, query).
		Str(xglog.FieldSort, sortLabel(opts.Sort)).
		Logger()

	repos, err := c.Client.SearchAllRepositories(ctx, query, opts.Sort)
	if err != nil {
		return result, fmt.Errorf("search %q: %w", query, err)
	}
	if len(repos) > opts.MaxRepositories {
		repos = repos[:opts.MaxRepositories]
	}
	result.Found = len(repos)

	logger.Info().
		Str(xglog.FieldEvent, "collect.search").
		Int("found", len(repos)).
		Msg("search completed")

	for i, repo := range repos {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rlog := logger.With().Str(xglog.FieldRepository, repo.FullName).Logger()

		if ds.Contains(repo.FullName) {
			if !opts.Update {
				result.SkippedExisting++
				metrics.IncRepository(metrics.OutcomeSkippedExisting)
				rlog.Debug().Str(xglog.FieldEvent, "repo.skipped").Msg("repository already collected")
				continue
			}
			ds.Delete(repo.FullName)
		}

		summary, matrix, err := c.collectRepository(ctx, repo, opts.Releases)
		switch {
		case errors.Is(err, errNoRelease):
			result.SkippedNoRelease++
			metrics.IncRepository(metrics.OutcomeSkippedNoRelease)
			rlog.Warn().Str(xglog.FieldEvent, "repo.no_release").Msg("repository has no stable release, skipping")
			continue
		case err != nil:
			if fatal(ctx, err) {
				return result, fmt.Errorf("collect %s: %w", repo.FullName, err)
			}
			result.Failed++
			metrics.IncRepository(metrics.OutcomeFailed)
			rlog.Warn().Err(err).Str(xglog.FieldEvent, "repo.failed").Msg("repository collection failed")
			continue
		}

		ds.Put(summary, matrix)
		result.Processed++
		metrics.IncRepository(metrics.OutcomeProcessed)
		metrics.SetDatasetRepositories(ds.Len())
		rlog.Info().
			Str(xglog.FieldEvent, "repo.processed").
			Int("releases", len(matrix.Rows)).
			Int(xglog.FieldProcessed, i+1).
			Msg("repository processed")
	}

	return result, nil
}

func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, github.ErrCircuitOpen) ||
		errors.Is(err, github.ErrUnauthorized)
}

func (c *Collector) concurrency() int {
	if c.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Concurrency
}

// collectRepository builds the language matrix first so that repositories
// without releases cost no summary requests.
func (c *Collector) collectRepository(ctx context.Context, repo github.Repository, releases int) (_ Summary, _ Matrix, err error) {
	ctx, span := telemetry.Tracer("gla.analytics").Start(ctx, "gla.collect.repository")
	span.SetAttributes(telemetry.RepositoryKey.String(repo.FullName))
	defer func() {
		if err != nil && !errors.Is(err, errNoRelease) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	matrix, err := c.languageMatrix(ctx, repo, releases)
	if err != nil {
		return Summary{}, Matrix{}, err
	}
	if len(matrix.Rows) == 0 {
		return Summary{}, Matrix{}, errNoRelease
	}

	summary, err := c.summary(ctx, repo)
	if err != nil {
		return Summary{}, Matrix{}, err
	}
	return summary, matrix, nil
}

func (c *Collector) languageMatrix(ctx context.Context, repo github.Repository, n int) (Matrix, error) {
	owner, name := repo.Owner.Login, repo.Name

	releases, err := c.Client.Releases(ctx, owner, name, github.ReleaseOptions{
		StableOnly: true,
		TimeSpaced: true,
		Count:      n,
	})
	if err != nil {
		return Matrix{}, fmt.Errorf("releases: %w", err)
	}
	if len(releases) == 0 {
		return Matrix{}, nil
	}

	rows := make([]MatrixRow, len(releases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency())
	for i, rel := range releases {
		g.Go(func() error {
			tree, err := c.Client.Tree(gctx, owner, name, rel.TagName, true)
			if err != nil {
				return fmt.Errorf("tree %s: %w", rel.TagName, err)
			}
			rows[i] = MatrixRow{
				Date:   DateOf(rel.Date()),
				Shares: language.Shares(tree.Entries),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: rows}, nil
}

func (c *Collector) summary(ctx context.Context, repo github.Repository) (Summary, error) {
	owner, name := repo.Owner.Login, repo.Name
	s := Summary{
		Name:      repo.FullName,
		CreatedAt: DateOf(repo.CreatedAt),
		UpdatedAt: DateOf(repo.UpdatedAt),
		Size:      repo.Size,
		StarCount: repo.StargazersCount,
		ForkCount: repo.ForksCount,
		Topics:    append([]string{}, repo.Topics...),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency())
	counts := []struct {
		field *int
		label string
		fetch func(context.Context) (int, error)
	}{
		{&s.FileCount, "file count", func(ctx context.Context) (int, error) {
			return c.Client.FileCount(ctx, owner, name, repo.DefaultBranch)
		}},
		{&s.ReleaseCount, "release count", func(ctx context.Context) (int, error) {
			return c.Client.ReleaseCount(ctx, owner, name)
		}},
		{&s.ContributorCount, "contributor count", func(ctx context.Context) (int, error) {
			return c.Client.ContributorCount(ctx, owner, name)
		}},
		{&s.CommitCount, "commit count", func(ctx context.Context) (int, error) {
			return c.Client.CommitCount(ctx, owner, name)
		}},
		{&s.IssueCount, "issue count", func(ctx context.Context) (int, error) {
			return c.Client.IssueCount(ctx, owner, name)
		}},
	}
	for _, cnt := range counts {
		g.Go(func() error {
			n, err := cnt.fetch(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", cnt.label, err)
			}
			*cnt.field = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func sortLabel(sort string) string {
	if sort == "" {
		return "best-match"
	}
	return sort
}
