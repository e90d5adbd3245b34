// SPDX-License-Identifier: MIT

// Package validate accumulates configuration validation errors.
package validate

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Error represents a validation error
type Error struct {
	Field   string // Field name that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{
		errors: make([]Error, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}

	copied := make([]Error, len(v.errors))
	copy(copied, v.errors)

	return ValidationError{errors: copied}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	if len(e.errors) == 1 {
		return e.errors[0].Error()
	}

	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL validates a URL string
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}

	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}

	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}

	if len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme) {
		v.AddError(field,
			fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes),
			value)
	}
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field,
			fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value),
			value)
	}
}

// Directory validates a directory path
// If mustExist is true, the directory must already exist
// If mustExist is false, the directory will be created if it doesn't exist
func (v *Validator) Directory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				v.AddError(field, "directory does not exist", path)
				return
			}
			if err := os.MkdirAll(absPath, 0o750); err != nil {
				v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
			}
			return
		}
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
		return
	}

	if !info.IsDir() {
		v.AddError(field, "path is not a directory", path)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	if slices.Contains(allowed, value) {
		return
	}
	v.AddError(field,
		fmt.Sprintf("value must be one of %v, got %q", allowed, value),
		value)
}

// Positive validates that a number is positive (> 0)
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// NonNegativeDuration validates that a duration is zero or positive.
func (v *Validator) NonNegativeDuration(field string, value time.Duration) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("duration cannot be negative, got %s", value), value)
	}
}

// MinDuration validates that a duration is at least minVal.
func (v *Validator) MinDuration(field string, value, minVal time.Duration) {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("duration must be at least %s, got %s", minVal, value), value)
	}
}

// ListenAddr validates a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, value string) {
	if value == "" {
		v.AddError(field, "listen address cannot be empty", value)
		return
	}
	idx := strings.LastIndex(value, ":")
	if idx < 0 || idx == len(value)-1 {
		v.AddError(field, "listen address must be host:port", value)
	}
}
