// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelNotLoaded indicates an NLU model backend is not configured or loaded.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrSearchUnavailable indicates the search service is not ready to serve queries.
	ErrSearchUnavailable = errors.New("search service unavailable")

	// ErrKnowledgeBaseNotLoaded indicates the knowledge base has not finished loading.
	ErrKnowledgeBaseNotLoaded = errors.New("knowledge base not loaded")
)

// IsInvalidInput reports whether err matches ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsSearchUnavailable reports whether err matches ErrSearchUnavailable.
func IsSearchUnavailable(err error) bool {
	return errors.Is(err, ErrSearchUnavailable)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap makes ValidationError match ErrInvalidInput via errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ServiceError represents a failure in an upstream model or service call.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error (service=%s): %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error.
func NewServiceError(service string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Err:     err,
	}
}
