package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Common record store errors
var (
	// ErrNotFound is returned when no record matches the owner-scoped lookup.
	// Records that exist under a different owner are reported the same way.
	ErrNotFound = errors.New("record not found")

	// ErrOwnerRequired is returned by operations that never act on guest records,
	// such as deletes and finalized invoice writes.
	ErrOwnerRequired = errors.New("owner identity required")

	// ErrUnsupportedDriver is returned by Open for an unknown DATABASE_DRIVER.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrUnknownSection is returned when a section value has no column mapping.
	ErrUnknownSection = errors.New("unknown draft section")
)

// StoreError wraps a persistence failure with the operation that caused it.
type StoreError struct {
	// Op is the store operation that failed (e.g., "UpdateSection").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrap turns gorm errors into store errors. Missing rows become ErrNotFound so
// callers never have to import gorm.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
