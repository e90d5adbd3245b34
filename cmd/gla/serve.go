// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/daemon"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset over HTTP and run scheduled collections",
		Long: `Serve exposes the stored dataset on a read-only JSON API together with
/healthz, /readyz and /metrics. When collect.interval is set, collections run
in the background and the served dataset is refreshed after every step.
The config file is watched and reloaded on change or SIGHUP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.API.Listen = listen
				if err := config.Validate(cfg); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			rt, err := daemon.Bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

			logger := xglog.WithComponent("daemon")
			logger.Info().
				Str(xglog.FieldEvent, "daemon.start").
				Str("listen", cfg.API.Listen).
				Dur("interval", cfg.Collect.Interval).
				Str("token", config.MaskToken(cfg.GitHub.Token)).
				Msg("starting serve mode")
			return daemon.Serve(ctx, rt, config.NewHolder(cfg, loader))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, e.g. :8080")
	return cmd
}
