package graph

import (
	"errors"
	"fmt"
)

// Static errors for graph construction.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("graph: invalid parameter")
	// ErrUsage marks contract violations. These are programming errors and
	// callers should not try to recover from them.
	ErrUsage = errors.New("graph: usage error")

	// ErrNotMaster is returned when a merge is attempted on a non-master builder.
	ErrNotMaster = fmt.Errorf("%w: merge requires a master builder", ErrUsage)
	// ErrConsumed is returned when a builder is used after a merge or run took ownership of it.
	ErrConsumed = fmt.Errorf("%w: builder was consumed", ErrUsage)
	// ErrNotInitialized is returned when an operation runs before Init.
	ErrNotInitialized = fmt.Errorf("%w: builder is not initialized", ErrUsage)
	// ErrAlreadyInitialized is returned when Init is called twice.
	ErrAlreadyInitialized = fmt.Errorf("%w: builder is already initialized", ErrUsage)
	// ErrSelfMerge is returned when a builder is merged into itself.
	ErrSelfMerge = fmt.Errorf("%w: builder cannot absorb itself", ErrUsage)
	// ErrNilBuilder is returned when a merge is given a nil builder.
	ErrNilBuilder = fmt.Errorf("%w: nil builder", ErrUsage)
	// ErrNoInputs is returned when a graph without input files is finalized.
	ErrNoInputs = fmt.Errorf("%w: pipeline has no inputs", ErrUsage)
)

// ValidationError reports a parameter outside its documented domain.
// It is raised before the builder is mutated.
type ValidationError struct {
	Op     string
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("graph: %s: invalid %s %v: %s", e.Op, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(op, field string, value any, reason string) error {
	return &ValidationError{Op: op, Field: field, Value: value, Reason: reason}
}
