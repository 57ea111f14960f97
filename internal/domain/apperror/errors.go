// Package apperror defines the error taxonomy shared by every layer.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that is malformed or out of range.
	ErrValidation = errors.New("validation error")

	// ErrExternalProvider marks a failed, timed out or rejected provider call.
	ErrExternalProvider = errors.New("external provider error")

	// ErrPersistence marks a failed durable write or read.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound marks a lookup by identifier that found nothing.
	ErrNotFound = errors.New("resource not found")
)

// ValidationError carries a field-level message for the caller
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports ErrValidation as the sentinel for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderError describes a failure of the external exchange-rate provider.
// Classification is set when the provider answered with an error envelope;
// StatusCode and Detail are set for transport-level failures.
type ProviderError struct {
	Source         string
	Target         string
	Classification string
	StatusCode     int
	Detail         string
	Err            error
}

func (e *ProviderError) Error() string {
	if e.Classification != "" {
		return fmt.Sprintf("External API error: %s for %s to %s", e.Classification, e.Source, e.Target)
	}

	msg := fmt.Sprintf("failed to fetch exchange rate for %s to %s", e.Source, e.Target)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrExternalProvider as the sentinel for every ProviderError
func (e *ProviderError) Is(target error) bool {
	return target == ErrExternalProvider
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Tag returns the short classification exposed to API callers
func (e *ProviderError) Tag() string {
	if e.Classification != "" {
		return e.Classification
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("http-%d", e.StatusCode)
	}
	return "unavailable"
}

// Persistence wraps a store failure so callers can match ErrPersistence
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
