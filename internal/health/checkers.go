// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/github"
)

// FuncChecker adapts a function returning an error into a Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncChecker creates a checker that is unhealthy whenever fn fails.
func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// GitHubAPI is the part of the GitHub client the checker uses.
type GitHubAPI interface {
	RateLimitStatus(ctx context.Context) (*github.RateLimit, error)
	BreakerState() github.State
}

// MessageCredentialsRejected is the GitHub check message for a bad or revoked token.
const MessageCredentialsRejected = "credentials rejected"

const defaultGitHubCheckTimeout = 5 * time.Second

// GitHubChecker reports circuit breaker state and remaining quota. Results
// are reused for ttl so that repeated checks cost at most one request per ttl.
type GitHubChecker struct {
	client  GitHubAPI
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	last    CheckResult
	checked time.Time
}

// NewGitHubChecker creates the "github" checker.
func NewGitHubChecker(client GitHubAPI, ttl time.Duration) *GitHubChecker {
	return &GitHubChecker{client: client, ttl: ttl, timeout: defaultGitHubCheckTimeout, now: time.Now}
}

func (c *GitHubChecker) Name() string { return "github" }

func (c *GitHubChecker) Check(ctx context.Context) CheckResult {
	if c.client.BreakerState() == github.StateOpen {
		return CheckResult{Status: StatusUnhealthy, Message: "circuit breaker open"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.checked.IsZero() && c.now().Sub(c.checked) < c.ttl {
		return c.last
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	rl, err := c.client.RateLimitStatus(ctx)
	switch {
	case errors.Is(err, github.ErrUnauthorized):
		c.last = CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: MessageCredentialsRejected}
	case errors.Is(err, github.ErrUpstreamUnavailable):
		c.last = CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "GitHub unreachable"}
	case err != nil:
		c.last = CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "rate limit status unavailable"}
	case rl.Remaining == 0:
		c.last = CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("rate limit exhausted until %s", rl.Reset.UTC().Format(time.RFC3339)),
		}
	default:
		c.last = CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d/%d requests remaining", rl.Remaining, rl.Limit)}
	}
	c.checked = c.now()
	return c.last
}

// DataDirChecker verifies that the dataset directory exists and is writable.
type DataDirChecker struct {
	path string
}

// NewDataDirChecker creates the "data_dir" checker.
func NewDataDirChecker(path string) *DataDirChecker {
	return &DataDirChecker{path: path}
}

func (c *DataDirChecker) Name() string { return "data_dir" }

func (c *DataDirChecker) Check(context.Context) CheckResult {
	if err := CheckDataDir(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

// CheckDataDir fails when path is not an existing, writable directory.
func CheckDataDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)
	return nil
}

// LastRunChecker reports the outcome of the last collection run.
type LastRunChecker struct {
	getLastRun func() (time.Time, string)
	maxAge     time.Duration
	now        func() time.Time
}

// NewLastRunChecker creates a checker over the last run time and error. Runs
// older than maxAge are degraded; maxAge 0 disables the age check.
func NewLastRunChecker(getLastRun func() (time.Time, string), maxAge time.Duration) *LastRunChecker {
	return &LastRunChecker{getLastRun: getLastRun, maxAge: maxAge, now: time.Now}
}

func (c *LastRunChecker) Name() string { return "last_collection" }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	lastRun, lastError := c.getLastRun()

	if lastRun.IsZero() {
		return CheckResult{Status: StatusDegraded, Message: "no collection run yet"}
	}
	if lastError != "" {
		return CheckResult{Status: StatusDegraded, Error: lastError, Message: "last collection failed"}
	}
	if c.maxAge > 0 && c.now().Sub(lastRun) > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("last successful collection over %s ago", c.maxAge)}
	}
	return CheckResult{Status: StatusHealthy, Message: "last collection successful"}
}
