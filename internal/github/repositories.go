// SPDX-License-Identifier: MIT

package github

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
)

const (
	searchPerPage = 100
	// GitHub serves at most 1000 search results.
	maxSearchPages = 10
)

// Repository fetches a single repository.
func (c *Client) Repository(ctx context.Context, owner, repo string) (*Repository, error) {
	resp, err := c.get(ctx, "repository", repoPath(owner, repo), nil, cacheable)
	if err != nil {
		return nil, err
	}
	var r Repository
	if err := decode("repository", resp.body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Tree fetches the git tree at ref, which may be a branch, a tag or a SHA.
// Tags are path-escaped so names containing '/', '#' or '?' resolve correctly.
func (c *Client) Tree(ctx context.Context, owner, repo, ref string, recursive bool) (*Tree, error) {
	var params url.Values
	if recursive {
		params = url.Values{"recursive": {"1"}}
	}
	// Recursive trees can be tens of megabytes and each tag is read once.
	resp, err := c.get(ctx, "tree", repoPath(owner, repo)+"/git/trees/"+url.PathEscape(ref), params, 0)
	if err != nil {
		return nil, err
	}
	var t Tree
	if err := decode("tree", resp.body, &t); err != nil {
		return nil, err
	}
	if t.Truncated {
		c.logger.Debug().
			Str(xglog.FieldRepository, owner+"/"+repo).
			Str(xglog.FieldRelease, ref).
			Msg("git tree truncated by GitHub")
	}
	return &t, nil
}

// SearchRepositories fetches one page of repository search results, ordered descending.
func (c *Client) SearchRepositories(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	result, _, err := c.searchPage(ctx, q, cacheable)
	return result, err
}

func (c *Client) searchPage(ctx context.Context, q SearchQuery, flags requestFlags) (*SearchResult, *response, error) {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	params := url.Values{
		"q":        {q.Query},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}

	resp, err := c.get(ctx, "search", "/search/repositories", params, flags)
	if err != nil {
		return nil, nil, err
	}
	var result SearchResult
	if err := decode("search", resp.body, &result); err != nil {
		return nil, nil, err
	}
	return &result, resp, nil
}

// SearchAllRepositories returns every result of a search, up to GitHub's limit of ten pages of 100.
func (c *Client) SearchAllRepositories(ctx context.Context, query, sort string) ([]Repository, error) {
	first, resp, err := c.searchPage(ctx, SearchQuery{Query: query, Sort: sort, PerPage: searchPerPage, Page: 1}, 0)
	if err != nil {
		return nil, err
	}

	items := first.Items
	last := min(LastPage(resp.header.Get("Link")), maxSearchPages)
	for page := 2; page <= last; page++ {
		next, err := c.SearchRepositories(ctx, SearchQuery{Query: query, Sort: sort, PerPage: searchPerPage, Page: page})
		if err != nil {
			return nil, err
		}
		items = append(items, next.Items...)
	}
	return items, nil
}

// FileCount counts the files (blobs) of the recursive tree of branch.
func (c *Client) FileCount(ctx context.Context, owner, repo, branch string) (int, error) {
	tree, err := c.Tree(ctx, owner, repo, branch, true)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range tree.Entries {
		if e.IsBlob() {
			n++
		}
	}
	return n, nil
}

// ReleaseCount returns the number of releases, drafts and pre-releases included.
func (c *Client) ReleaseCount(ctx context.Context, owner, repo string) (int, error) {
	return c.count(ctx, "release_count", repoPath(owner, repo)+"/releases", nil)
}

// ContributorCount returns the number of contributors, anonymous ones included.
func (c *Client) ContributorCount(ctx context.Context, owner, repo string) (int, error) {
	return c.count(ctx, "contributor_count", repoPath(owner, repo)+"/contributors", url.Values{"anon": {"true"}})
}

// CommitCount returns the number of commits on the default branch.
func (c *Client) CommitCount(ctx context.Context, owner, repo string) (int, error) {
	return c.count(ctx, "commit_count", repoPath(owner, repo)+"/commits", nil)
}

// count requests one item per page: the last page number is then the item count.
// Without a Link header everything fits on one page.
func (c *Client) count(ctx context.Context, endpoint, path string, params url.Values) (int, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", "1")

	resp, err := c.get(ctx, endpoint, path, params, 0)
	if err != nil {
		return 0, err
	}
	if last := LastPage(resp.header.Get("Link")); last != -1 {
		return last, nil
	}

	// Empty repositories answer 204 on some list endpoints.
	if len(resp.body) == 0 {
		return 0, nil
	}
	var items []json.RawMessage
	if err := decode(endpoint, resp.body, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// IssueCount returns the number of issues (open and closed, pull requests excluded).
func (c *Client) IssueCount(ctx context.Context, owner, repo string) (int, error) {
	params := url.Values{
		"q":        {"repo:" + owner + "/" + repo + " type:issue"},
		"per_page": {"1"},
	}
	resp, err := c.get(ctx, "issue_count", "/search/issues", params, cacheable)
	if err != nil {
		return 0, err
	}
	var result issueSearchResult
	if err := decode("issue_count", resp.body, &result); err != nil {
		return 0, err
	}
	return result.TotalCount, nil
}

// RateLimitStatus reports the core rate limit bucket. GitHub does not count the
// call, so it does not wait for a request slot either.
func (c *Client) RateLimitStatus(ctx context.Context) (*RateLimit, error) {
	resp, err := c.get(ctx, "rate_limit", "/rate_limit", nil, unpaced)
	if err != nil {
		return nil, err
	}
	var rl rateLimitResponse
	if err := decode("rate_limit", resp.body, &rl); err != nil {
		return nil, err
	}
	core := rl.Resources.Core
	return &RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Used:      core.Used,
		Reset:     time.Unix(core.Reset, 0).UTC(),
	}, nil
}
