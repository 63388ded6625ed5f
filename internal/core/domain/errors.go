package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrBookNotFound   = fmt.Errorf("book %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrBorrowNotFound = fmt.Errorf("borrow record %w", ErrNotFound)

	ErrUnavailable        = errors.New("no copies available")
	ErrAlreadyReturned    = errors.New("borrow record already returned")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrBookOnLoan         = errors.New("book has copies on loan")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")

	// ErrValidation and ErrStorage match every ValidationError and StorageError.
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports an input that violates a field constraint.
type ValidationError struct {
	Field string
	Msg   string
}

// NewValidationError is a shorthand used by services.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + " " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failure of the catalog store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
