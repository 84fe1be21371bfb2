// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Domain packages wrap these roots so callers
// can pick the correct remediation with errors.Is instead of parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the supplied credential (e.g. a passphrase)
	// does not grant access to the protected material.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCancelled indicates the user aborted an interactive operation.
	ErrCancelled = errors.New("cancelled")

	// ErrUnavailable indicates the operation targets a resource that is no
	// longer usable (e.g. a closed key session).
	ErrUnavailable = errors.New("unavailable")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
