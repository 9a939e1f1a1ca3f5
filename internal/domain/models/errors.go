package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup by identifier or name matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the item name is already taken or an item still
	// holding stock is deleted.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized means no credentials were presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials means the username or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrStorage wraps failures of the underlying persistence layer.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a field level validation failure.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// InsufficientStockError is returned when a movement would take a product below zero.
type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %q: available %d, requested %d", e.Product, e.Available, e.Requested)
}

// StorageError tags err as a persistence failure for the given operation.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
