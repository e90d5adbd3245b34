// SPDX-License-Identifier: MIT

// Package github is a paced, cached client for the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/cache"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
	"github.com/kerryghan-relot/github-language-analysis/internal/platform/httpx"
	"github.com/kerryghan-relot/github-language-analysis/internal/version"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL         = "https://api.github.com"
	DefaultHourlyRateLimit = 5000

	defaultTimeout          = 30 * time.Second
	defaultCacheTTL         = 15 * time.Minute
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	defaultMaxRateLimitWait = 15 * time.Minute

	maxBodyBytes  = 64 << 20
	maxErrorBytes = 512
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL         string
	Token           string
	HourlyRateLimit int
	Timeout         time.Duration

	// Cache stores JSON bodies of idempotent GETs keyed by URL. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration

	BreakerThreshold int
	BreakerReset     time.Duration

	// MaxRateLimitWait bounds how long a request sleeps for GitHub's rate limit
	// reset before retrying once. Zero selects the default; negative disables retries.
	MaxRateLimitWait time.Duration

	HTTPClient *http.Client
}

// Client talks to the GitHub REST API. It is safe for concurrent use.
type Client struct {
	baseURL          string
	token            string
	http             *http.Client
	limiter          *rate.Limiter
	cache            cache.Cache
	cacheTTL         time.Duration
	breaker          *CircuitBreaker
	maxRateLimitWait time.Duration
	logger           zerolog.Logger
	now              func() time.Time
}

// New creates a client. Requests are spaced evenly so that no more than
// HourlyRateLimit requests are issued per hour.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	hourly := opts.HourlyRateLimit
	if hourly <= 0 {
		hourly = DefaultHourlyRateLimit
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpx.NewTracedClient(timeout)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	threshold := opts.BreakerThreshold
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	reset := opts.BreakerReset
	if reset <= 0 {
		reset = defaultBreakerReset
	}

	maxWait := opts.MaxRateLimitWait
	if maxWait == 0 {
		maxWait = defaultMaxRateLimitWait
	}

	return &Client{
		baseURL:          baseURL,
		token:            opts.Token,
		http:             httpClient,
		limiter:          rate.NewLimiter(rate.Every(time.Hour/time.Duration(hourly)), 1),
		cache:            opts.Cache,
		cacheTTL:         ttl,
		breaker:          NewCircuitBreaker(threshold, reset),
		maxRateLimitWait: maxWait,
		logger:           xglog.WithComponent("github"),
		now:              time.Now,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() State { return c.breaker.State() }

// requestFlags adjust how get issues a request.
type requestFlags uint8

const (
	// cacheable bodies are served from and stored into the response cache.
	cacheable requestFlags = 1 << iota
	// unpaced requests skip the hourly limiter. Only for endpoints GitHub
	// does not count against the rate limit.
	unpaced
)

type response struct {
	body   []byte
	header http.Header
	status int
}

// get performs a paced GET of path with params. Cached responses carry no headers.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, flags requestFlags) (*response, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	useCache := flags&cacheable != 0 && c.cache != nil
	if useCache {
		if body, ok := c.cache.Get(ctx, u); ok {
			metrics.IncCacheLookup(true)
			return &response{body: body, status: http.StatusOK}, nil
		}
		metrics.IncCacheLookup(false)
	}

	var (
		resp    *response
		callErr error
	)
	err := c.breaker.Execute(func() error {
		resp, callErr = c.doWithRetry(ctx, endpoint, u, flags&unpaced == 0)
		if callErr != nil && ctx.Err() == nil && tripsBreaker(callErr) {
			return callErr
		}
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		metrics.ObserveGitHubRequest(endpoint, "circuit_open", 0)
		return nil, fmt.Errorf("%s: %w", endpoint, ErrCircuitOpen)
	}
	if callErr != nil {
		return nil, callErr
	}

	if useCache {
		c.cache.Set(ctx, u, resp.body, c.cacheTTL)
	}
	return resp, nil
}

// doWithRetry retries once after GitHub's rate limit resets when the wait is acceptable.
func (c *Client) doWithRetry(ctx context.Context, endpoint, u string, paced bool) (*response, error) {
	resp, err := c.do(ctx, endpoint, u, paced)

	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || !errors.Is(apiErr.Sentinel, ErrRateLimited) {
		return resp, err
	}
	if c.maxRateLimitWait < 0 || apiErr.RetryAfter > c.maxRateLimitWait {
		return nil, err
	}

	c.logger.Warn().
		Str(xglog.FieldEvent, "github.rate_limited").
		Str(xglog.FieldEndpoint, endpoint).
		Dur("retry_after", apiErr.RetryAfter).
		Msg("rate limit exceeded, waiting for reset")

	timer := time.NewTimer(apiErr.RetryAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return c.do(ctx, endpoint, u, paced)
}

func (c *Client) do(ctx context.Context, endpoint, u string, paced bool) (*response, error) {
	if paced {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: waiting for request slot: %w", endpoint, err)
		}
		metrics.ObserveRateLimitWait(time.Since(waitStart))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "gla/"+version.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveGitHubRequest(endpoint, "error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: endpoint, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveGitHubRequest(endpoint, "error", duration)
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: endpoint, Status: res.StatusCode, Err: err}
	}

	if remaining, err := strconv.Atoi(res.Header.Get("X-RateLimit-Remaining")); err == nil {
		metrics.SetRateLimitRemaining(remaining)
	}

	if apiErr := c.classify(endpoint, res, body); apiErr != nil {
		label := statusClass(res.StatusCode)
		if errors.Is(apiErr, ErrRateLimited) {
			label = "rate_limited"
		}
		metrics.ObserveGitHubRequest(endpoint, label, duration)
		c.logger.Debug().
			Str(xglog.FieldEvent, "github.request_failed").
			Str(xglog.FieldEndpoint, endpoint).
			Int(xglog.FieldStatus, res.StatusCode).
			Msg(apiErr.Sentinel.Error())
		return nil, apiErr
	}

	metrics.ObserveGitHubRequest(endpoint, statusClass(res.StatusCode), duration)
	return &response{body: body, header: res.Header, status: res.StatusCode}, nil
}

func (c *Client) classify(endpoint string, res *http.Response, body []byte) *APIError {
	status := res.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	e := &APIError{Operation: endpoint, Status: status, Body: truncate(body, maxErrorBytes)}
	switch {
	case status == http.StatusUnauthorized:
		e.Sentinel = ErrUnauthorized
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden && isRateLimitResponse(res.Header):
		e.Sentinel = ErrRateLimited
		e.RetryAfter = c.retryAfter(res.Header)
	case status == http.StatusForbidden:
		e.Sentinel = ErrForbidden
	case status == http.StatusNotFound:
		e.Sentinel = ErrNotFound
	case status >= 500:
		e.Sentinel = ErrUpstreamError
	default:
		e.Sentinel = ErrRequestRejected
	}
	return e
}

func isRateLimitResponse(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

// retryAfter honours Retry-After first, then X-RateLimit-Reset.
func (c *Client) retryAfter(h http.Header) time.Duration {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s >= 0 {
		return time.Duration(s) * time.Second
	}
	if epoch, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if d := time.Unix(epoch, 0).Sub(c.now()); d > 0 {
			return d
		}
		return 0
	}
	return time.Minute
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func decode(endpoint string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
	}
	return nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}
