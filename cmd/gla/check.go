// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/config"
	"github.com/kerryghan-relot/github-language-analysis/internal/daemon"
	"github.com/kerryghan-relot/github-language-analysis/internal/health"
	"github.com/spf13/cobra"
)

const checkTimeout = 30 * time.Second

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check configuration, GitHub access and storage",
		Long: `Check loads and validates the configuration, then verifies the GitHub token,
API reachability and remaining rate limit, and that the data directory and
store are usable. It exits non-zero when any check is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			cfg, _, err := root.loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(out, "FAIL  config      %v\n", err)
				return err
			}
			fmt.Fprintln(out, "ok    config")

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()
			rt, err := daemon.Bootstrap(ctx, cfg)
			if err != nil {
				fmt.Fprintf(out, "FAIL  bootstrap   %v\n", err)
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

			resp := rt.HealthManager(nil).Health(ctx, true)
			fmt.Fprintln(out, tokenLine(cfg.GitHub.Token, resp.Checks["github"]))

			names := make([]string, 0, len(resp.Checks))
			for name := range resp.Checks {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintln(out, formatCheck(name, resp.Checks[name]))
			}

			if resp.Status == health.StatusUnhealthy {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

// tokenLine reports the token as ok unless GitHub rejected it.
func tokenLine(token string, gh health.CheckResult) string {
	switch {
	case token == "" && gh.Message == health.MessageCredentialsRejected:
		return fmt.Sprintf("%-5s %-11s %s", "FAIL", "token", "not set and GitHub requires credentials")
	case token == "":
		return fmt.Sprintf("%-5s %-11s %s", "warn", "token", "not set; GitHub allows 60 unauthenticated requests per hour")
	case gh.Message == health.MessageCredentialsRejected:
		return fmt.Sprintf("%-5s %-11s %s", "FAIL", "token", config.MaskToken(token)+" rejected by GitHub")
	default:
		return fmt.Sprintf("%-5s %-11s %s", "ok", "token", config.MaskToken(token))
	}
}

func formatCheck(name string, res health.CheckResult) string {
	label := "ok"
	switch res.Status {
	case health.StatusDegraded:
		label = "warn"
	case health.StatusUnhealthy:
		label = "FAIL"
	}
	detail := res.Message
	if res.Error != "" {
		if detail != "" {
			detail += ": "
		}
		detail += res.Error
	}
	return fmt.Sprintf("%-5s %-11s %s", label, name, detail)
}
