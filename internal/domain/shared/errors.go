package shared

import "errors"

// ErrorKind classifies domain errors so callers can decide how to surface them
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConsistency ErrorKind = "consistency"
	KindConflict    ErrorKind = "conflict"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by code, so sentinel errors work with errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error of kind validation
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a not-found domain error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewConsistencyError creates an error for operations that would break a ledger invariant
func NewConsistencyError(code, message string) *DomainError {
	return &DomainError{Kind: KindConsistency, Code: code, Message: message}
}

// NewConflictError creates a conflict domain error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConsistencyError("CONCURRENT_MODIFICATION", "Resource was modified by another process")
	ErrDuplicateRequest    = NewConflictError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
)
