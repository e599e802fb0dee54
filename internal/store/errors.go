package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by every operation on a closed store.
	ErrNotOpen = errors.New("store is not open")
	// ErrNotFound is returned when updating a record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation matches every [*ConstraintError].
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrUnknownIndex is returned by QueryByIndex for an undeclared index.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrInvalidPatch is returned when a patch names an unknown field, changes
	// the primary key or carries a value of the wrong type.
	ErrInvalidPatch = errors.New("invalid patch")
	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)

// OpenError reports a failure to open or migrate the store.
type OpenError struct {
	Dir string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open store %s: %v", e.Dir, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// ConstraintError reports a primary key or unique index collision.
type ConstraintError struct {
	Collection string
	Index      string // "id" for the primary key.
	Key        string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: duplicate %s %q", e.Collection, e.Index, e.Key)
}

// Is makes errors.Is(err, ErrConstraintViolation) true.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// SeedFetchError reports that the bootstrap fixture could not be fetched or
// decoded. The store is left empty.
type SeedFetchError struct {
	Source string
	Err    error
}

func (e *SeedFetchError) Error() string {
	return fmt.Sprintf("failed to fetch fixture %s: %v", e.Source, e.Err)
}

func (e *SeedFetchError) Unwrap() error {
	return e.Err
}
