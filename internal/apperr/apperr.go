// Package apperr defines the closed error taxonomy shared by the auth and
// search services. Callers are expected to dispatch with errors.As rather
// than inspecting messages.
package apperr

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports one or more rejected input fields. Always
// recoverable by the caller; the HTTP layer maps it to 422.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Validation builds a ValidationError from the accumulated field messages.
func Validation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// RateLimitError carries the time until the caller may retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	mins := int(e.RetryAfter.Minutes()) + 1
	return fmt.Sprintf("too many attempts, try again in %d minute(s)", mins)
}

// ConflictError reports a uniqueness violation (username or email taken).
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return e.Resource + " is already taken"
}

// StoreError wraps a backing-service failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError, or returns nil if err is nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
