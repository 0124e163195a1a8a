// Package apperrors defines the error kinds surfaced by the analysis pipeline.
//
// Callers classify failures with errors.As; the HTTP layer maps each kind to a
// status code.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrQuotaExceeded indicates the upstream provider returned a quota/limit error (HTTP 429).
var ErrQuotaExceeded = errors.New("upstream quota exceeded")

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError reports a failed call to an external API.
// StatusCode is zero when the request never produced a response.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Summary()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Summary names the service and status only. The wrapped error may quote the
// upstream response body, so this is what callers outside the process see.
func (e *UpstreamError) Summary() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: HTTP %d", e.Service, e.StatusCode)
	}
	return e.Service + " request failed"
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrQuotaExceeded) match rate-limited responses.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.StatusCode == http.StatusTooManyRequests
}

// ParseError reports model output that could not be recovered as valid JSON
// or that violates the expected schema. Raw is kept for diagnostics only and
// is never part of Error().
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "invalid JSON response from model: " + e.Err.Error()
	}
	return "invalid JSON response from model"
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
