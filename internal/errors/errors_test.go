package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrInvalidInput is recognized",
			err:      ErrInvalidInput,
			checkFn:  IsInvalidInput,
			expected: true,
		},
		{
			name:     "Wrapped ErrInvalidInput is recognized",
			err:      fmt.Errorf("parse request: %w", ErrInvalidInput),
			checkFn:  IsInvalidInput,
			expected: true,
		},
		{
			name:     "Different error is not ErrInvalidInput",
			err:      ErrSearchUnavailable,
			checkFn:  IsInvalidInput,
			expected: false,
		},
		{
			name:     "ErrSearchUnavailable is recognized",
			err:      ErrSearchUnavailable,
			checkFn:  IsSearchUnavailable,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("message", "message cannot be empty")

	if err.Field != "message" {
		t.Errorf("expected field 'message', got '%s'", err.Field)
	}

	expected := "validation failed on message: message cannot be empty"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected validation error to match ErrInvalidInput")
	}
}

func TestServiceError(t *testing.T) {
	baseErr := errors.New("connection timeout")
	err := NewServiceError("intent-classifier", baseErr)

	if err.Service != "intent-classifier" {
		t.Errorf("expected service 'intent-classifier', got '%s'", err.Service)
	}

	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}

	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
