// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/kerryghan-relot/github-language-analysis/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gla %s\n", version.String())
		},
	}
}
