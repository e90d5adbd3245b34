// SPDX-License-Identifier: MIT

package github

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("github: resource not found")
	ErrUnauthorized        = errors.New("github: bad or missing credentials")
	ErrForbidden           = errors.New("github: access forbidden")
	ErrRateLimited         = errors.New("github: rate limit exceeded")
	ErrRequestRejected     = errors.New("github: request rejected (4xx)")
	ErrUpstreamError       = errors.New("github: internal error (5xx)")
	ErrUpstreamUnavailable = errors.New("github: host unreachable or transport failure")
	ErrBadResponse         = errors.New("github: invalid response format or malformed data")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel   error
	Operation  string
	Status     int
	Body       string
	RetryAfter time.Duration // set for ErrRateLimited
	Err        error         // Nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("github: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// tripsBreaker reports whether err signals an unhealthy upstream.
// Client errors (4xx) say nothing about GitHub's health.
func tripsBreaker(err error) bool {
	return errors.Is(err, ErrUpstreamError) || errors.Is(err, ErrUpstreamUnavailable)
}
