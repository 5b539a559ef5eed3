// Package apperrors defines the error kinds the HTTP layer knows how to
// translate: validation (400), not found (404), upstream (mirrored status)
// and internal (500).
package apperrors

import "fmt"

// ValidationError reports missing or malformed required input. It is
// raised before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an entity that was expected to exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// NewNotFound builds a NotFoundError for an entity/key pair.
func NewNotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// UpstreamError reports a non-success response (or transport failure) from
// the store or the orchestrator. Status is zero when the call never reached
// the upstream.
type UpstreamError struct {
	System string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.System, e.Err)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.System, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// InternalError wraps an unexpected failure.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
