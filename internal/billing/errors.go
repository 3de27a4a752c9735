package billing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuantity is returned when a line edit would leave a quantity
	// that is zero or negative. The line is left untouched.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")

	// ErrNegativePrice is returned when a base price below zero is entered.
	ErrNegativePrice = errors.New("unit price must not be negative")

	// ErrNegativeTotal is returned when a line total below zero is entered.
	ErrNegativeTotal = errors.New("line total must not be negative")

	// ErrUnknownEvent is returned by Apply for an event without a handler.
	ErrUnknownEvent = errors.New("unknown line edit event")

	// ErrInvalidTaxRate is returned by NewEngine for rates outside [0, 1).
	ErrInvalidTaxRate = errors.New("tax rate must be in [0, 1)")

	// ErrIncompleteDocument is returned when a document lacks a client,
	// products or an up-to-date summary.
	ErrIncompleteDocument = errors.New("document is incomplete")

	// ErrInvalidDocument is returned when document fields are present but
	// break a business rule (identifier format, document type).
	ErrInvalidDocument = errors.New("document is invalid")
)

// DocumentError reports why a document cannot be issued yet.
type DocumentError struct {
	// Op is the operation that failed (e.g., "Assemble").
	Op string

	// Err is the underlying sentinel error.
	Err error

	// Missing lists the absent or stale parts of the document.
	Missing []string
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("billing: %s failed: %v: missing %s", e.Op, e.Err, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("billing: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a DocumentError for the given operation.
func NewDocumentError(op string, err error, missing ...string) *DocumentError {
	return &DocumentError{
		Op:      op,
		Err:     err,
		Missing: missing,
	}
}

// ValidationError represents a business-rule violation on one field.
// It matches ErrInvalidDocument with errors.Is.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDocument
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
