// SPDX-License-Identifier: MIT

// Package jobs runs dataset collections: every configured query, in every
// sort mode, saved after each step so an interrupted run keeps its progress.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/github"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
	"github.com/kerryghan-relot/github-language-analysis/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "gla.jobs"

// Run loads the stored dataset and collects every query in every sort mode,
// saving after each step. A failing step is logged and the run continues;
// cancellation, an open circuit breaker, bad credentials and save failures
// end the run. The returned status is non-nil even on error.
func Run(ctx context.Context, deps Deps, opts Options) (*Status, error) {
	if deps.Collector == nil || deps.Store == nil {
		return nil, errors.New("jobs: collector and store are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	queries := UniqueQueries(opts.Queries)
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	sorts := opts.Sorts
	if len(sorts) == 0 {
		sorts = DefaultSorts
	}

	status := &Status{RunID: uuid.NewString(), StartedAt: clock()}
	ctx = xglog.ContextWithRunID(ctx, status.RunID)
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "gla.collect.run")
	span.SetAttributes(telemetry.RunIDKey.String(status.RunID))
	defer span.End()

	err := run(ctx, deps, opts, queries, sorts, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	status.FinishedAt = clock()
	status.Duration = status.FinishedAt.Sub(status.StartedAt)
	hours := int(status.Duration.Hours())
	minutes := int(status.Duration.Minutes()) % 60

	switch {
	case err == nil:
		metrics.IncCollectionRun("success")
		metrics.SetLastCollection(status.FinishedAt)
		logger.Info().
			Str(xglog.FieldEvent, "collect.done").
			Int(xglog.FieldProcessed, status.Processed).
			Int("repositories", status.Repositories).
			Int("failed_steps", status.FailedSteps).
			Int("hours", hours).
			Int("minutes", minutes).
			Msgf("collected %d repositories in %d hours and %d minutes", status.Processed, hours, minutes)
		return status, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.IncCollectionRun("cancelled")
	default:
		metrics.IncCollectionRun("failure")
	}
	status.Error = err.Error()
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "collect.failed").
		Int(xglog.FieldProcessed, status.Processed).
		Int("hours", hours).
		Int("minutes", minutes).
		Msg("collection run ended early")
	return status, err
}

func run(ctx context.Context, deps Deps, opts Options, queries, sorts []string, status *Status) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	ds, err := deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	status.Repositories = ds.Len()
	logger.Info().
		Str(xglog.FieldEvent, "collect.start").
		Int("queries", len(queries)).
		Int("sorts", len(sorts)).
		Int("repositories", ds.Len()).
		Msg("starting collection")

	for _, query := range queries {
		for _, sort := range sorts {
			if err := ctx.Err(); err != nil {
				return err
			}
			stepLog := logger.With().Str(xglog.FieldQuery, query).Str(xglog.FieldSort, sortLabel(sort)).Logger()
			stepLog.Info().Str(xglog.FieldEvent, "collect.step").Msg("processing query")

			stepCtx, span := telemetry.Tracer(tracerName).Start(ctx, "gla.collect.step")
			span.SetAttributes(telemetry.QueryKey.String(query), telemetry.SortKey.String(sortLabel(sort)))
			res, err := deps.Collector.CollectForSearch(stepCtx, ds, query, analytics.CollectOptions{
				Sort:            sort,
				Update:          opts.Update,
				MaxRepositories: opts.MaxRepositories,
				Releases:        opts.Releases,
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
			status.add(res)

			// Partial progress is kept even when the step failed.
			if serr := save(ctx, deps, ds); serr != nil {
				return serr
			}
			status.Repositories = ds.Len()

			if err != nil {
				if abort(ctx, err) {
					return err
				}
				status.FailedSteps++
				stepLog.Warn().Err(err).Str(xglog.FieldEvent, "collect.step_failed").Msg("query failed, continuing")
				continue
			}
			stepLog.Info().
				Str(xglog.FieldEvent, "collect.step_done").
				Int(xglog.FieldProcessed, res.Processed).
				Int("found", res.Found).
				Dur("duration", res.Duration).
				Msg("query collected, dataset saved")
		}
	}
	return nil
}

func save(ctx context.Context, deps Deps, ds *analytics.Dataset) error {
	// A cancelled run still persists what it collected.
	if err := deps.Store.Save(context.WithoutCancel(ctx), ds); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	if deps.OnSaved != nil {
		deps.OnSaved(ds.Clone())
	}
	return nil
}

func abort(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, github.ErrCircuitOpen) ||
		errors.Is(err, github.ErrUnauthorized)
}
