package optimizer

import (
	"fmt"
	"math"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
)

// Result is the outcome of one optimization.
type Result struct {
	Cost       float64
	Variance   float64
	Allocation *allocation.SampleAllocation
}

// Valid reports whether the budget was feasible.
func (r *Result) Valid() bool {
	return r != nil && !math.IsInf(r.Variance, 1) && !math.IsNaN(r.Variance)
}

// Optimizer is implemented by every optimizer family.
type Optimizer interface {
	Optimize(targetCost float64) (*Result, error)
	NumModels() int
	Method() string
}

// invalidResult signals an infeasible budget: every model gets one sample.
func invalidResult(numModels int, method string, kind model.Kind) (*Result, error) {
	row := make([]int, 2*numModels)
	for i := range row {
		row[i] = 1
	}
	alloc, err := allocation.New([][]int{row}, method, allocation.WithKind(kind))
	if err != nil {
		return nil, err
	}
	return &Result{Cost: 0, Variance: math.Inf(1), Allocation: alloc}, nil
}

// monteCarloResult spends the whole budget on the reference model.
func monteCarloResult(cost, variance, targetCost float64, method string, kind model.Kind) (*Result, error) {
	n, err := sampleCount(targetCost / cost)
	if err != nil {
		return nil, err
	}
	alloc, err := allocation.New([][]int{{n, 1}}, method, allocation.WithKind(kind))
	if err != nil {
		return nil, err
	}
	return &Result{Cost: float64(n) * cost, Variance: variance / float64(n), Allocation: alloc}, nil
}

// maxSamples bounds a single sample count.
const maxSamples = math.MaxUint32

// sampleCount floors x into a sample count.
func sampleCount(x float64) (int, error) {
	n := math.Floor(x + floorTolerance)
	if math.IsNaN(n) || n < 0 || n > maxSamples {
		return 0, fmt.Errorf("%w: sample count %g out of range [0, %d]", model.ErrInvalidInput, x, uint64(maxSamples))
	}
	return int(n), nil
}

// checkSampleTotal rejects allocations whose summed counts exceed maxSamples.
func checkSampleTotal(nums []int) error {
	total := uint64(0)
	for _, n := range nums {
		total += uint64(n)
	}
	if total > maxSamples {
		return fmt.Errorf("%w: %d samples exceed %d", model.ErrInvalidInput, total, uint64(maxSamples))
	}
	return nil
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}
