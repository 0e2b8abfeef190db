package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a write is attempted without an
	// authenticated creator.
	ErrUnauthorized = errors.New("authentication required")

	// ErrInvalidDraft is returned when a submitted listing fails validation.
	ErrInvalidDraft = errors.New("invalid agent")

	// ErrNotFound is returned when an agent does not exist or is not public.
	ErrNotFound = errors.New("agent not found")

	// ErrInvalidCategory is returned when a new category fails validation.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrCategoryExists is returned when a category slug is already taken.
	ErrCategoryExists = errors.New("category already exists")

	// ErrCategoryNotFound is returned when deleting an unknown category.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryInUse is returned when deleting a category that has agents.
	ErrCategoryInUse = errors.New("category still has agents")
)

// StoreError wraps a failure talking to the backing store. The wrapped
// error carries detail for logs only; it is never shown to clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("catalog store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDraft, fmt.Sprintf(format, args...))
}

func invalidCategory(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCategory, fmt.Sprintf(format, args...))
}
