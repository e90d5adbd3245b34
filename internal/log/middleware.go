// SPDX-License-Identifier: MIT

package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware logs one line per HTTP request with status, size and latency.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			rid := middleware.GetReqID(r.Context())
			ctx := r.Context()
			if rid != "" {
				ctx = ContextWithRequestID(ctx, rid)
			}

			next.ServeHTTP(ww, r.WithContext(ctx))

			logger := WithComponentFromContext(ctx, "http")
			evt := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str(FieldEvent, "request.handled").
				Str("method", r.Method).
				Str(FieldPath, r.URL.Path).
				Int(FieldStatus, ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
