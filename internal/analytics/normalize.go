// SPDX-License-Identifier: MIT

package analytics

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var fold = cases.Fold()

// NormalizeKey returns the lookup key of a repository name or topic.
// GitHub treats names case-insensitively, so keys are NFC-normalised and case-folded.
func NormalizeKey(s string) string {
	return fold.String(norm.NFC.String(strings.TrimSpace(s)))
}
