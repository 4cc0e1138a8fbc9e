package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrThreadBusy is returned when a thread already has a workflow in flight
	ErrThreadBusy = errors.New("thread busy")

	// ErrTenantMismatch is returned when an entity belongs to a different tenant
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrTenantDisabled is returned when the tenant is inactive or deleted
	ErrTenantDisabled = errors.New("tenant disabled")

	// ErrAssistantInactive is returned when the bound assistant is not active
	ErrAssistantInactive = errors.New("assistant inactive")

	// ErrMemoryNotFound is returned when a memory entry is not found
	ErrMemoryNotFound = errors.New("memory entry not found")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
