// SPDX-License-Identifier: MIT

package github

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"time"
)

const (
	releasesPerPage     = 100
	maxReleasePages     = 999
	defaultReleaseCount = 8
	day                 = 24 * time.Hour
)

// Releases fetches every release of a repository, oldest first.
func (c *Client) Releases(ctx context.Context, owner, repo string, opts ReleaseOptions) ([]Release, error) {
	path := repoPath(owner, repo) + "/releases"

	var releases []Release
	for page := 1; page <= maxReleasePages; page++ {
		params := url.Values{
			"per_page": {strconv.Itoa(releasesPerPage)},
			"page":     {strconv.Itoa(page)},
		}
		resp, err := c.get(ctx, "releases", path, params, cacheable)
		if err != nil {
			return nil, err
		}
		var batch []Release
		if err := decode("releases", resp.body, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		releases = append(releases, batch...)
	}

	if opts.StableOnly {
		releases = slices.DeleteFunc(releases, func(r Release) bool { return !r.Stable() })
	}

	slices.SortStableFunc(releases, func(a, b Release) int {
		return a.Date().Compare(b.Date())
	})

	if opts.TimeSpaced {
		n := opts.Count
		if n <= 0 {
			n = defaultReleaseCount
		}
		releases = SelectTimeSpaced(releases, n)
	}
	return releases, nil
}

// SelectTimeSpaced reduces releases (sorted oldest first) to at most n releases
// spread evenly over time. The oldest and newest releases are always kept; each
// intermediate pick is the release closest, in whole days, to an evenly spaced
// target date. Releases picked twice appear once.
func SelectTimeSpaced(releases []Release, n int) []Release {
	if len(releases) <= n {
		return releases
	}
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return releases[len(releases)-1:]
	}

	first := releases[0].Date()
	last := releases[len(releases)-1].Date()
	interval := float64(floorDays(last.Sub(first))) / float64(n-1)

	picked := []int{0}
	for i := 1; i < n-1; i++ {
		target := first.Add(time.Duration(int(float64(i)*interval)) * day)

		best, bestDist := 1, -1
		for j := 1; j < len(releases); j++ {
			d := floorDays(releases[j].Date().Sub(target))
			if d < 0 {
				d = -d
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = j, d
			}
		}
		picked = append(picked, best)
	}
	picked = append(picked, len(releases)-1)

	out := make([]Release, 0, n)
	seen := make(map[int]bool, n)
	for _, idx := range picked {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, releases[idx])
	}
	return out
}

// floorDays counts whole days in d, rounding towards negative infinity.
func floorDays(d time.Duration) int {
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}
