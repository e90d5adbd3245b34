// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used to talk to GitHub.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 30 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 20 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 8
)

// NewClient returns a hardened HTTP client. Dial and header timeouts are capped
// so that a stalled upstream fails before the overall request timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(timeout),
	}
}

// NewTracedClient is NewClient with an OpenTelemetry instrumented transport.
// Spans are exported only when a tracer provider has been installed.
func NewTracedClient(timeout time.Duration) *http.Client {
	c := NewClient(timeout)
	c.Transport = otelhttp.NewTransport(c.Transport)
	return c
}

func newTransport(timeout time.Duration) *http.Transport {
	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}
