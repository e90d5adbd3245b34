// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, loader, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			src := "defaults and environment"
			if p := loader.Path(); p != "" {
				src = p
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (%s)\n", src)
			return nil
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Example: `  gla config show
  gla config show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			masked := config.Masked(cfg)

			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(masked); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(masked)
			default:
				return fmt.Errorf("unsupported format %q (supported: yaml, json)", format)
			}
		},
	}
	show.Flags().StringVarP(&format, "format", "o", "yaml", "output format (yaml or json)")

	cmd.AddCommand(validate, show)
	return cmd
}
