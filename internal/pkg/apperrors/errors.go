package apperrors

import (
	"errors"
	"fmt"
)

// Store errors
var (
	// ErrResourceNotFound is returned by the store when nothing matched.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrMalformedID is returned when an identifier cannot be parsed into the
	// backend's native id type. Repositories treat it exactly like ErrResourceNotFound.
	ErrMalformedID = errors.New("malformed identifier")
	// ErrConstraintViolation is returned when a write breaks a unique index.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStoreUnavailable is returned when the document store cannot be reached.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// Account errors
var (
	ErrEmailAlreadyExists = fmt.Errorf("email already exists: %w", ErrConstraintViolation)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Configuration errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsNotFound reports whether err means "no such document", which includes
// identifiers that could not be parsed.
func IsNotFound(err error) bool {
	return Is(err, ErrResourceNotFound, ErrMalformedID)
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewConstraintError reports a unique-index violation on a collection.
func NewConstraintError(collection string, cause error) error {
	return NewCustomError(fmt.Errorf("%w: %w", ErrConstraintViolation, cause),
		fmt.Sprintf("unique index violated in %s", collection)).
		WithDetails(map[string]interface{}{"collection": collection})
}

// NewUnavailableError wraps a connectivity failure from the store driver.
func NewUnavailableError(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, cause)
}
