// SPDX-License-Identifier: MIT

// Package analytics holds the collected dataset and the logic that fills it
// from GitHub and derives language trends from it.
package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/language"
)

// DateLayout is the on-disk and API representation of dates.
const DateLayout = "2006-01-02"

// Features are the summary columns, in CSV order.
var Features = []string{
	"name",
	"created_at",
	"updated_at",
	"file_count",
	"release_count",
	"size",
	"star_count",
	"fork_count",
	"contributor_count",
	"commit_count",
	"issue_count",
	"topics",
}

// Summary describes one repository.
type Summary struct {
	Name             string // owner/repo
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FileCount        int
	ReleaseCount     int
	Size             int64 // KiB, as reported by GitHub
	StarCount        int
	ForkCount        int
	ContributorCount int
	CommitCount      int
	IssueCount       int
	Topics           []string
}

// Owner returns the part of Name before the slash.
func (s Summary) Owner() string {
	owner, _, _ := strings.Cut(s.Name, "/")
	return owner
}

// Repo returns the part of Name after the slash.
func (s Summary) Repo() string {
	_, repo, _ := strings.Cut(s.Name, "/")
	return repo
}

// HasTopic reports whether the repository carries topic, compared normalised.
func (s Summary) HasTopic(topic string) bool {
	want := NormalizeKey(topic)
	return slices.ContainsFunc(s.Topics, func(t string) bool { return NormalizeKey(t) == want })
}

func (s Summary) clone() Summary {
	s.Topics = slices.Clone(s.Topics)
	return s
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MatrixRow is the language breakdown of one release.
type MatrixRow struct {
	Date   time.Time
	Shares map[string]float64 // extension -> fraction of bytes; missing means 0
}

// Share returns the share of ext, 0 when absent.
func (r MatrixRow) Share(ext string) float64 {
	return r.Shares[ext]
}

// Matrix is the language history of one repository, one row per selected release.
type Matrix struct {
	Rows []MatrixRow
}

// Columns returns the matrix columns, in CSV order.
func Columns() []string {
	return append([]string{"date"}, language.SupportedExtensions()...)
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	if m.Rows == nil {
		return Matrix{}
	}
	rows := make([]MatrixRow, len(m.Rows))
	for i, r := range m.Rows {
		shares := make(map[string]float64, len(r.Shares))
		for k, v := range r.Shares {
			shares[k] = v
		}
		rows[i] = MatrixRow{Date: r.Date, Shares: shares}
	}
	return Matrix{Rows: rows}
}
