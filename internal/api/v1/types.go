// SPDX-License-Identifier: MIT

package v1

import (
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/jobs"
	"github.com/kerryghan-relot/github-language-analysis/internal/language"
)

const dateLayout = "2006-01-02"

// StatusResponse defines the v1 status contract.
type StatusResponse struct {
	Status       string       `json:"status"`
	Version      string       `json:"version"`
	StartedAt    time.Time    `json:"started_at"`
	Repositories int          `json:"repositories"`
	LastRun      *jobs.Status `json:"last_run,omitempty"`
}

// Repository is one repository summary.
type Repository struct {
	Name             string   `json:"name"`
	Owner            string   `json:"owner"`
	Repo             string   `json:"repo"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
	FileCount        int      `json:"file_count"`
	ReleaseCount     int      `json:"release_count"`
	Size             int64    `json:"size"`
	StarCount        int      `json:"star_count"`
	ForkCount        int      `json:"fork_count"`
	ContributorCount int      `json:"contributor_count"`
	CommitCount      int      `json:"commit_count"`
	IssueCount       int      `json:"issue_count"`
	Topics           []string `json:"topics"`
}

// RepositoryList is a page of repositories.
type RepositoryList struct {
	Total        int          `json:"total"`
	Repositories []Repository `json:"repositories"`
}

// LanguageRow is the language breakdown of one release.
type LanguageRow struct {
	Date   string             `json:"date"`
	Shares map[string]float64 `json:"shares"`
}

// RepositoryLanguages is the language matrix of a repository.
type RepositoryLanguages struct {
	Name     string        `json:"name"`
	Releases []LanguageRow `json:"releases"`
}

// Family lists the extensions of one language family.
type Family struct {
	Family     language.Family `json:"family"`
	Extensions []string        `json:"extensions"`
}

// TrendPoint is the mean language breakdown of one year.
type TrendPoint struct {
	Year         int                `json:"year"`
	Repositories int                `json:"repositories"`
	Releases     int                `json:"releases"`
	Shares       map[string]float64 `json:"shares"`
}

// RankedExtension is an extension and its mean share in a year.
type RankedExtension struct {
	Extension string          `json:"extension"`
	Family    language.Family `json:"family"`
	Share     float64         `json:"share"`
}

// YearRanking ranks extensions for one year.
type YearRanking struct {
	Year       int               `json:"year"`
	Extensions []RankedExtension `json:"extensions"`
}

func toRepository(s analytics.Summary) Repository {
	topics := s.Topics
	if topics == nil {
		topics = []string{}
	}
	return Repository{
		Name:             s.Name,
		Owner:            s.Owner(),
		Repo:             s.Repo(),
		CreatedAt:        formatDate(s.CreatedAt),
		UpdatedAt:        formatDate(s.UpdatedAt),
		FileCount:        s.FileCount,
		ReleaseCount:     s.ReleaseCount,
		Size:             s.Size,
		StarCount:        s.StarCount,
		ForkCount:        s.ForkCount,
		ContributorCount: s.ContributorCount,
		CommitCount:      s.CommitCount,
		IssueCount:       s.IssueCount,
		Topics:           topics,
	}
}

func toLanguages(name string, m analytics.Matrix) RepositoryLanguages {
	rows := make([]LanguageRow, 0, len(m.Rows))
	for _, row := range m.Rows {
		shares := make(map[string]float64, len(row.Shares))
		for ext, v := range row.Shares {
			if v > 0 {
				shares[ext] = v
			}
		}
		rows = append(rows, LanguageRow{Date: formatDate(row.Date), Shares: shares})
	}
	return RepositoryLanguages{Name: name, Releases: rows}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
