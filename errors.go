package mxmc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mxmc/blobstore"
	"github.com/hupe1980/mxmc/catalog"
	"github.com/hupe1980/mxmc/model"
)

var (
	// ErrNotFound is returned when a persisted allocation or catalog entry
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownMethod is returned for method tags without an optimizer.
	ErrUnknownMethod = errors.New("unknown optimization method")

	// ErrNoBlobStore is returned when persistence is requested without a
	// configured blob store.
	ErrNoBlobStore = errors.New("no blob store configured")
)

// Errors shared with the subpackages.
var (
	ErrMalformedAllocation       = model.ErrMalformedAllocation
	ErrSamplesNotGenerated       = model.ErrSamplesNotGenerated
	ErrInsufficientSamples       = model.ErrInsufficientSamples
	ErrDimensionMismatch         = model.ErrDimensionMismatch
	ErrInvalidInput              = model.ErrInvalidInput
	ErrUnsupportedAllocationType = model.ErrUnsupportedAllocationType
	ErrSingularSystem            = model.ErrSingularSystem
	ErrSolverFailed              = model.ErrSolverFailed
)

// OptimizeError reports a failed optimization at one target cost.
//
// The original underlying error can be accessed via errors.Unwrap.
type OptimizeError struct {
	Method     string
	TargetCost float64
	cause      error
}

func (e *OptimizeError) Error() string {
	return fmt.Sprintf("optimize %s at target cost %g: %v", e.Method, e.TargetCost, e.cause)
}

func (e *OptimizeError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
