package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps transport error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// DomainErrorHTTPStatus maps domain error codes to HTTP status codes.
// Domain codes pass through to clients unchanged; only the status is
// derived here.
var DomainErrorHTTPStatus = map[string]int{
	// Lookups -> 404 Not Found
	"NOT_FOUND":                 http.StatusNotFound,
	"LINE_ITEM_NOT_FOUND":       http.StatusNotFound,
	"SHIPPING_LINE_NOT_FOUND":   http.StatusNotFound,
	"ADDED_LINE_ITEM_NOT_FOUND": http.StatusNotFound,
	"DISCOUNT_NOT_FOUND":        http.StatusNotFound,
	"STAGED_CHANGE_NOT_FOUND":   http.StatusNotFound,
	"VARIANT_NOT_FOUND":         http.StatusNotFound,
	"LOCATION_NOT_FOUND":        http.StatusNotFound,

	// Conflicts -> 409 Conflict
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"EDIT_ALREADY_OPEN":    http.StatusConflict,
	"DUPLICATE_DISCOUNT":   http.StatusConflict,

	// Business rules -> 422 Unprocessable Entity
	"ORDER_CLOSED":                    http.StatusUnprocessableEntity,
	"ORDER_CANCELLED":                 http.StatusUnprocessableEntity,
	"ORDER_EDIT_COMMITTED":            http.StatusUnprocessableEntity,
	"ORDER_TAX_EXEMPT":                http.StatusUnprocessableEntity,
	"ORDER_MISMATCH":                  http.StatusUnprocessableEntity,
	"REFUND_EXCEEDS_REFUNDABLE":       http.StatusUnprocessableEntity,
	"SHIPPING_REFUND_EXCEEDS_MAXIMUM": http.StatusUnprocessableEntity,
	"DISCOUNTED_LINE_QUANTITY":        http.StatusUnprocessableEntity,
	"NO_TAXABLE_LINES":                http.StatusUnprocessableEntity,
	"NO_DISCOUNT_TARGETS":             http.StatusUnprocessableEntity,
	"EMPTY_ORDER":                     http.StatusUnprocessableEntity,
	"LOCATION_REQUIRED":               http.StatusUnprocessableEntity,
	"INVALID_STATE":                   http.StatusUnprocessableEntity,

	// Persistence-level decode failures -> 500
	"STAGED_CHANGE_DECODE":       http.StatusInternalServerError,
	"STAGED_CHANGE_ENCODE":       http.StatusInternalServerError,
	"STAGED_CHANGE_UNKNOWN_KIND": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code. Unmapped
// INVALID_* codes are input errors; everything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := DomainErrorHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
