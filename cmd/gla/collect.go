// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/daemon"
	"github.com/spf13/cobra"
)

type collectOptions struct {
	queries         []string
	sorts           []string
	maxRepositories int
	releases        int
	update          bool
	dataDir         string
}

func newCollectCmd(root *rootOptions) *cobra.Command {
	opts := &collectOptions{}
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect repositories for every query and sort, saving after each step",
		Long: `Collect searches GitHub for every query in every sort order and stores a
summary and a language matrix per repository. Repositories already stored are
skipped unless --update is set. The dataset is saved after every step, so an
interrupted run resumes where it stopped.

Example:
  gla collect --query gaming --query robotics --sort stars --releases 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, &cfg); err != nil {
				return err
			}
			return runCollect(cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&opts.queries, "query", "q", nil, "search query (repeatable; default: built-in topic list)")
	f.StringSliceVar(&opts.sorts, "sort", nil, "search sort: stars, forks, updated, help-wanted-issues or best-match (repeatable)")
	f.IntVar(&opts.maxRepositories, "max-repositories", 0, "repositories per query and sort")
	f.IntVar(&opts.releases, "releases", 0, "time-spaced releases per language matrix")
	f.BoolVar(&opts.update, "update", false, "re-collect repositories already stored")
	f.StringVar(&opts.dataDir, "data-dir", "", "dataset directory")
	return cmd
}

// apply overlays the flags that were set and validates the result.
func (o *collectOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("query") {
		cfg.Collect.Queries = o.queries
	}
	if f.Changed("sort") {
		sorts := make([]string, len(o.sorts))
		for i, s := range o.sorts {
			sorts[i] = config.NormalizeSort(s)
		}
		cfg.Collect.Sorts = sorts
	}
	if f.Changed("max-repositories") {
		cfg.Collect.MaxRepositories = o.maxRepositories
	}
	if f.Changed("releases") {
		cfg.Collect.Releases = o.releases
	}
	if f.Changed("update") {
		cfg.Collect.Update = o.update
	}
	if f.Changed("data-dir") {
		abs, err := filepath.Abs(o.dataDir)
		if err != nil {
			return err
		}
		cfg.Storage.DataDir = abs
	}
	return config.Validate(*cfg)
}

func runCollect(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	rt, err := daemon.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

	status, err := rt.Collect(ctx, daemon.OptionsFrom(cfg.Collect), nil)
	if status != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s: %d steps (%d failed), %d found, %d processed, %d skipped, %d failed\n",
			status.RunID, status.Steps, status.FailedSteps, status.Found, status.Processed, status.Skipped, status.Failed)
		fmt.Fprintf(out, "dataset: %d repositories in %s\n", status.Repositories, cfg.Storage.DataDir)
	}
	return err
}
