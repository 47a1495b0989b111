package transport

import (
	"errors"
	"fmt"
)

// ReasonValidation is the reason code the API uses for rejected input
const ReasonValidation = "validation_error"

var (
	// ErrValidation matches any *ValidationError via errors.Is
	ErrValidation = errors.New("validation error")

	// ErrUncategorized matches any *UncategorizedError via errors.Is
	ErrUncategorized = errors.New("uncategorized error")
)

// ValidationError is returned when the API rejects a request's input
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UncategorizedError covers every other API error and transport failure.
// Code is the HTTP status when known and 0 otherwise.
type UncategorizedError struct {
	Message string
	Code    int
	Err     error
}

// Error implements the error interface
func (e *UncategorizedError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
}

// Unwrap returns the underlying transport error, if any
func (e *UncategorizedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUncategorized
func (e *UncategorizedError) Is(target error) bool {
	return target == ErrUncategorized
}

// Classify turns an error object from the API into a typed error
func Classify(code int, reason, message string) error {
	if code == 400 && reason == ReasonValidation {
		return &ValidationError{Message: message}
	}
	return &UncategorizedError{Message: message, Code: code}
}

// IsValidation returns true if err is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return 400
	}
	var uncategorized *UncategorizedError
	if errors.As(err, &uncategorized) {
		return uncategorized.Code
	}
	return 0
}
