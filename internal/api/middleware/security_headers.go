// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strings"
)

// DefaultCSP forbids everything; the API only serves JSON and text metrics.
const DefaultCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders adds common security headers to all responses.
func SecurityHeaders(csp string) func(http.Handler) http.Handler {
	if csp == "" {
		csp = DefaultCSP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
