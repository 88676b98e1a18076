// Package apperror holds the error kinds shared by the services and mapped
// to HTTP responses by the handlers. Callers wrap them with context using
// fmt.Errorf("%w: ...") and test them with errors.Is.
package apperror

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrSequence             = errors.New("payment round out of sequence")
	ErrDuplicateTransaction = errors.New("transaction reference already used")
	ErrAuthorization        = errors.New("not authorized")
	ErrUnauthenticated      = errors.New("authentication required")
	// ErrConflict means the document changed between read and conditional write.
	ErrConflict = errors.New("concurrent modification")
)
