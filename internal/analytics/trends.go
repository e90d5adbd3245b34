// SPDX-License-Identifier: MIT

package analytics

import (
	"cmp"
	"slices"

	"github.com/kerryghan-relot/github-language-analysis/internal/language"
)

// TrendPoint is the mean language breakdown of all releases published in a year.
type TrendPoint struct {
	Year         int
	Repositories int // distinct repositories with a release that year
	Releases     int // matrix rows averaged
	Shares       map[string]float64
}

// Trends averages every matrix row per release year. Extensions missing from
// a row count as 0. Years are returned in ascending order.
func Trends(ds *Dataset) []TrendPoint {
	type acc struct {
		repos map[string]struct{}
		rows  int
		sums  map[string]float64
	}
	years := map[int]*acc{}

	ds.Each(func(s Summary, m Matrix) bool {
		for _, row := range m.Rows {
			y := row.Date.Year()
			a, ok := years[y]
			if !ok {
				a = &acc{repos: map[string]struct{}{}, sums: map[string]float64{}}
				years[y] = a
			}
			a.repos[s.Name] = struct{}{}
			a.rows++
			for ext, v := range row.Shares {
				a.sums[ext] += v
			}
		}
		return true
	})

	out := make([]TrendPoint, 0, len(years))
	for y, a := range years {
		shares := make(map[string]float64, len(a.sums))
		for ext, sum := range a.sums {
			if mean := language.Round(sum / float64(a.rows)); mean > 0 {
				shares[ext] = mean
			}
		}
		out = append(out, TrendPoint{Year: y, Repositories: len(a.repos), Releases: a.rows, Shares: shares})
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return cmp.Compare(a.Year, b.Year) })
	return out
}

// Ranked is one extension and its mean share.
type Ranked struct {
	Extension string
	Family    language.Family
	Share     float64
}

// Rank orders the extensions of year by mean share, largest first. Ties keep
// the column order. It returns nil when no release was published that year.
func Rank(ds *Dataset, year int) []Ranked {
	var point *TrendPoint
	for _, p := range Trends(ds) {
		if p.Year == year {
			point = &p
			break
		}
	}
	if point == nil {
		return nil
	}

	var out []Ranked
	for _, ext := range language.SupportedExtensions() {
		share, ok := point.Shares[ext]
		if !ok {
			continue
		}
		fam, _ := language.FamilyOf(ext)
		out = append(out, Ranked{Extension: ext, Family: fam, Share: share})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int { return cmp.Compare(b.Share, a.Share) })
	return out
}
