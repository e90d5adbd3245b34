// SPDX-License-Identifier: MIT

// Package version exposes build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version.
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the version line printed by `gla version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
