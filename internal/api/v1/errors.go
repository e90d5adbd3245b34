// SPDX-License-Identifier: MIT

package v1

import (
	"encoding/json"
	"net/http"

	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-API-Version", "1")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := xglog.WithComponentFromContext(r.Context(), "api.v1")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "api.encode_error").
			Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, detail string) {
	writeJSON(w, r, code, ErrorResponse{Error: errCode, Detail: detail})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeError(w, r, http.StatusBadRequest, "bad_request", detail)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeError(w, r, http.StatusNotFound, "not_found", detail)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeNotFound(w, r, "no route for "+r.URL.Path)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported")
}
