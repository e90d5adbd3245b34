// SPDX-License-Identifier: MIT

package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(tag string, published time.Time) Release {
	p := published
	return Release{TagName: tag, CreatedAt: published, PublishedAt: &p}
}

func tags(rs []Release) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.TagName
	}
	return out
}

func TestSelectTimeSpaced_ShortListUnchanged(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []Release{rel("a", base), rel("b", base.AddDate(0, 1, 0))}
	assert.Equal(t, rs, SelectTimeSpaced(rs, 2))
	assert.Equal(t, rs, SelectTimeSpaced(rs, 12))
}

func TestSelectTimeSpaced_EvenSpread(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	var rs []Release
	for i := 0; i <= 100; i++ {
		rs = append(rs, rel(fmt.Sprintf("d%d", i), base.AddDate(0, 0, i)))
	}

	got := SelectTimeSpaced(rs, 5)
	// span 100 days, interval 25: targets day 25, 50, 75
	assert.Equal(t, []string{"d0", "d25", "d50", "d75", "d100"}, tags(got))
}

func TestSelectTimeSpaced_TruncatedTargets(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	var rs []Release
	for i := 0; i <= 10; i++ {
		rs = append(rs, rel(fmt.Sprintf("d%d", i), base.AddDate(0, 0, i)))
	}

	got := SelectTimeSpaced(rs, 4)
	// interval 10/3 = 3.33: targets int(3.33)=3 and int(6.67)=6
	assert.Equal(t, []string{"d0", "d3", "d6", "d10"}, tags(got))
}

func TestSelectTimeSpaced_TiesPickEarliest(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []Release{
		rel("first", base),
		rel("early", base.AddDate(0, 0, 4)),
		rel("late", base.AddDate(0, 0, 6)),
		rel("last", base.AddDate(0, 0, 10)),
	}

	got := SelectTimeSpaced(rs, 3)
	// target day 5: both candidates are one day away
	assert.Equal(t, []string{"first", "early", "last"}, tags(got))
}

func TestSelectTimeSpaced_CollapsesDuplicates(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []Release{
		rel("d0", base),
		rel("d1", base.AddDate(0, 0, 1)),
		rel("d2", base.AddDate(0, 0, 2)),
		rel("d3", base.AddDate(0, 0, 3)),
		rel("d100", base.AddDate(0, 0, 100)),
	}

	got := SelectTimeSpaced(rs, 4)
	// targets day 33 (d3) and day 66 (d100, also kept as the newest)
	assert.Equal(t, []string{"d0", "d3", "d100"}, tags(got))
}

func TestSelectTimeSpaced_SingleRelease(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []Release{rel("a", base), rel("b", base.AddDate(0, 0, 1))}
	assert.Equal(t, []string{"b"}, tags(SelectTimeSpaced(rs, 1)))
	assert.Empty(t, SelectTimeSpaced(rs, 0))
}

func TestFloorDays(t *testing.T) {
	assert.Equal(t, 1, floorDays(36*time.Hour))
	assert.Equal(t, 0, floorDays(23*time.Hour))
	assert.Equal(t, -1, floorDays(-time.Hour))
	assert.Equal(t, -2, floorDays(-48*time.Hour))
}

func TestReleases_PaginatesFiltersAndSorts(t *testing.T) {
	pages := map[string]string{
		"1": `[
			{"tag_name":"v2.0.0","published_at":"2021-06-01T00:00:00Z","created_at":"2021-05-30T00:00:00Z"},
			{"tag_name":"v2.1.0-rc1","prerelease":true,"published_at":"2021-07-01T00:00:00Z","created_at":"2021-07-01T00:00:00Z"}
		]`,
		"2": `[
			{"tag_name":"draft","draft":true,"published_at":null,"created_at":"2021-08-01T00:00:00Z"},
			{"tag_name":"v1.0.0","published_at":null,"created_at":"2020-01-01T00:00:00Z"}
		]`,
	}
	var requested []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/releases", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		page := r.URL.Query().Get("page")
		requested = append(requested, page)
		body, ok := pages[page]
		if !ok {
			body = `[]`
		}
		_, _ = w.Write([]byte(body))
	}))

	all, err := c.Releases(context.Background(), "o", "r", ReleaseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0.0", "v2.0.0", "v2.1.0-rc1", "draft"}, tags(all))
	assert.Equal(t, []string{"1", "2", "3"}, requested)

	stable, err := c.Releases(context.Background(), "o", "r", ReleaseOptions{StableOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0.0", "v2.0.0"}, tags(stable))
	assert.True(t, stable[0].Date().Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestReleases_TimeSpaced(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	var items []string
	for i := 0; i < 30; i++ {
		d := base.AddDate(0, 0, 10*i).Format(time.RFC3339)
		items = append(items, fmt.Sprintf(`{"tag_name":"v%d","published_at":%q,"created_at":%q}`, i, d, d))
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))

	got, err := c.Releases(context.Background(), "o", "r", ReleaseOptions{StableOnly: true, TimeSpaced: true, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"v0", "v14", "v29"}, tags(got))
}
