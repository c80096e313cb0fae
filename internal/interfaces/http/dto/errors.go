package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself.
// Domain errors keep the code the ledger raised.

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when a client exceeds its request rate
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a route or resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeUnavailable is used when a dependency such as the database is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps HTTP-layer and ledger error codes to status codes.
// Codes not listed fall back to the status of their error kind.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:         http.StatusInternalServerError,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,

	// lost optimistic or row-lock races; the client may retry
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"DUPLICATE_REQUEST":       http.StatusConflict,
}

// KindHTTPStatus maps a domain error kind to its default status
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:  http.StatusBadRequest,
	shared.KindNotFound:    http.StatusNotFound,
	shared.KindConsistency: http.StatusUnprocessableEntity,
	shared.KindConflict:    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the status for a domain error: an explicit code
// mapping first, then the kind.
func DomainErrorStatus(de *shared.DomainError) int {
	if status, ok := ErrorCodeHTTPStatus[de.Code]; ok {
		return status
	}
	if status, ok := KindHTTPStatus[de.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ResolveError turns any error into a status, code and client-safe message.
// Errors that are not domain errors are reported as internal without detail.
func ResolveError(err error) (status int, code, message string) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return DomainErrorStatus(de), de.Code, de.Message
	}
	return http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"
}
