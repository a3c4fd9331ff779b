package shared

import (
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// FieldError is a validation failure scoped to a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors accumulates field-scoped validation failures across a
// whole request so callers see every problem at once. Not-found and
// business-rule violations are raised immediately instead.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationErrors creates an empty accumulator
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add appends a field-scoped validation failure
func (v *ValidationErrors) Add(field, code, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Code: code, Message: message})
}

// AddError appends an existing FieldError
func (v *ValidationErrors) AddError(err FieldError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether any validation failure was recorded
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// AsError returns the accumulator as an error if it holds any failures,
// nil otherwise.
func (v *ValidationErrors) AsError() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
