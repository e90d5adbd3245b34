// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const envConfigPath = "GLA_CONFIG"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gla",
		Short: "Analyse how the languages of popular GitHub repositories evolve",
		Long: `gla searches GitHub for repositories, samples time-spaced stable releases
of each one and records the byte share of every tracked file extension.

Configuration precedence: flags > environment (GLA_*) > config file > defaults.
A .env file in the working directory is read on start.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			xglog.Configure(xglog.Config{
				Level:   opts.logLevel,
				Output:  cmd.ErrOrStderr(),
				Version: version.Version,
			})
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(envConfigPath), "path to config file (YAML, env "+envConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides config")

	cmd.AddCommand(
		newCollectCmd(opts),
		newServeCmd(opts),
		newCheckCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\nrun '%s --help' for usage", err, c.CommandPath())
	})
	return cmd
}

// loadConfig loads the configuration and applies --log-level.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, *config.Loader, error) {
	loader := config.NewLoader(strings.TrimSpace(o.configPath))
	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	if o.logLevel != "" {
		level := strings.ToLower(o.logLevel)
		if _, err := zerolog.ParseLevel(level); err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
		}
		cfg.Log.Level = level
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Output:  cmd.ErrOrStderr(),
		Version: version.Version,
	})
	return cfg, loader, nil
}
