// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation. Spans
// are only exported when a tracer provider has been installed.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(trace.WithAttributes(semconv.ServiceName(serviceName))),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and scrape endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter names spans "{METHOD} {PATH}". Query values are never
// part of the name.
func spanNameFormatter(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// TraceID returns the trace id of the active span, or "" without one.
func TraceID(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
