package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedAllocation is returned when a compact allocation does not
	// imply an integral, positive model count or holds invalid entries.
	ErrMalformedAllocation = errors.New("malformed allocation")

	// ErrSamplesNotGenerated is returned when per-model samples are requested
	// before any samples were attached to the allocation.
	ErrSamplesNotGenerated = errors.New("samples not generated")

	// ErrInsufficientSamples is returned when a sample table has fewer rows
	// than the allocation requires.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrDimensionMismatch is returned when cost, variance or covariance
	// dimensions disagree with each other or with the model count.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidInput is returned for missing, non-finite or out-of-range
	// arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedAllocationType is returned when no estimator is
	// registered for an allocation kind.
	ErrUnsupportedAllocationType = errors.New("unsupported allocation type")

	// ErrSingularSystem is returned when a linear solve inside a variance
	// formula fails. It is never retried.
	ErrSingularSystem = errors.New("singular linear system")

	// ErrSolverFailed is returned when neither solver phase produced a
	// feasible point.
	ErrSolverFailed = errors.New("solver failed")
)

// DimensionError describes a size disagreement.
//
// It matches ErrDimensionMismatch with errors.Is.
type DimensionError struct {
	What     string
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s: expected %d, got %d", e.What, e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }

// SampleCountError describes a sample table that is too short.
//
// It matches ErrInsufficientSamples with errors.Is.
type SampleCountError struct {
	Required  int
	Available int
}

func (e *SampleCountError) Error() string {
	return fmt.Sprintf("insufficient samples: need %d rows, got %d", e.Required, e.Available)
}

// Is reports whether target is ErrInsufficientSamples.
func (e *SampleCountError) Is(target error) bool { return target == ErrInsufficientSamples }
