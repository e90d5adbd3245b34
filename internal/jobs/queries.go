// SPDX-License-Identifier: MIT

package jobs

import (
	"strings"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
)

// DefaultQueries are the topics searched when no query is configured.
var DefaultQueries = []string{
	"gaming",
	"machine learning",
	"biology",
	"cybersecurity",
	"web development",
	"data science",
	"mobile development",
	"devops",
	"blockchain",
	"internet of things",
	"artificial intelligence",
	"cloud computing",
	"virtual reality",
	"quantum computing",
	"computer vision",
	"robotics",
	"natural language processing",
	"nlp",
	"big data",
	"niche",
	"paris",
	"open source",
	"ethics",
	"privacy",
	"education",
	"healthcare",
	"geography",
	"finance",
	"university",
	"music",
	"sports",
	"environment",
	"agriculture",
	"musique",
	"github",
	"hack",
	"bank",
	"bitcoin",
	"self hosting",
}

// DefaultSorts runs every query by stars first, then by best match.
var DefaultSorts = []string{"stars", ""}

// UniqueQueries trims queries and drops blanks and duplicates, keeping the
// first occurrence. Duplicates are detected case-insensitively.
func UniqueQueries(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := analytics.NormalizeKey(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

func sortLabel(sort string) string {
	if sort == "" {
		return "best-match"
	}
	return sort
}
