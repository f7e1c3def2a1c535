// Package common defines sentinel and typed errors shared by the index
// packages. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Caller contract violations, rejected before any I/O.
	ErrValidation = errors.New("validation error")

	// Relational engine failures.
	ErrStorage = errors.New("storage error")

	// More than one row found for a key that must be unique.
	ErrInvariant = errors.New("internal invariant violated")
)

// ValidationError describes which request field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation so callers need not know the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a driver error together with the operation that
// produced it. The driver error is preserved unchanged for Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: db error: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage wraps err as a *StorageError. nil stays nil, and errors already
// classified by this package are returned as is.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvariant) || errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrorNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Invariant returns an error matching ErrInvariant.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
