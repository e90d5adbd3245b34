// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Collection fields
	FieldQuery      = "query"
	FieldSort       = "sort"
	FieldRepository = "repository"
	FieldRelease    = "release"
	FieldProcessed  = "processed"

	// Upstream fields
	FieldEndpoint = "endpoint"
	FieldStatus   = "status"
	FieldURL      = "url"

	// Storage fields
	FieldPath    = "path"
	FieldBackend = "backend"
)
