// SPDX-License-Identifier: MIT

package github

import "time"

// Owner is the account owning a repository.
type Owner struct {
	Login string `json:"login"`
}

// Repository is the subset of the GitHub repository object the collector uses.
type Repository struct {
	FullName        string    `json:"full_name"`
	Name            string    `json:"name"`
	Owner           Owner     `json:"owner"`
	DefaultBranch   string    `json:"default_branch"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Size            int64     `json:"size"` // KiB
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Topics          []string  `json:"topics"`
}

// Release is a GitHub release.
type Release struct {
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Draft       bool       `json:"draft"`
	Prerelease  bool       `json:"prerelease"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Date is the publication date, or the creation date for unpublished releases.
func (r Release) Date() time.Time {
	if r.PublishedAt != nil && !r.PublishedAt.IsZero() {
		return *r.PublishedAt
	}
	return r.CreatedAt
}

// Stable reports whether the release is neither a draft nor a pre-release.
func (r Release) Stable() bool {
	return !r.Draft && !r.Prerelease
}

// TreeEntry is one object of a git tree.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // blob|tree|commit
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// IsBlob reports whether the entry is a file.
func (e TreeEntry) IsBlob() bool { return e.Type == "blob" }

// Tree is a git tree as returned by the Git Trees API.
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// SearchQuery selects one page of repository search results.
type SearchQuery struct {
	Query   string
	Sort    string // stars|forks|help-wanted-issues|updated, empty for best match
	PerPage int
	Page    int
}

// SearchResult is one page of repository search results.
type SearchResult struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []Repository `json:"items"`
}

// ReleaseOptions controls Releases.
type ReleaseOptions struct {
	StableOnly bool
	TimeSpaced bool
	Count      int // releases kept when TimeSpaced, defaults to 8
}

// RateLimit is the state of a GitHub rate limit bucket.
type RateLimit struct {
	Limit     int
	Remaining int
	Used      int
	Reset     time.Time
}

type rateLimitBucket struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"`
}

type rateLimitResponse struct {
	Resources struct {
		Core rateLimitBucket `json:"core"`
	} `json:"resources"`
}

type issueSearchResult struct {
	TotalCount int `json:"total_count"`
}
