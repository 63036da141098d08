package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
)

// floorTolerance absorbs round-off when converting continuous sample counts
// to integers.
const floorTolerance = 1e-8

// ACV optimizes the sample allocation of an approximate control variate
// estimator. The Variant selects how auxiliary models share samples.
type ACV struct {
	variant   Variant
	costs     []float64
	cov       *mat.SymDense
	objective *acvObjective
	opts      options
}

var _ Optimizer = (*ACV)(nil)

// NewACV validates the inputs and returns an optimizer for variant.
//
// costs[0] is the cost of the high fidelity model. cov is the (M x M)
// model output covariance in the same order.
func NewACV(variant Variant, costs []float64, cov mat.Symmetric, opts ...Option) (*ACV, error) {
	if variant == nil {
		return nil, fmt.Errorf("%w: nil variant", model.ErrInvalidInput)
	}
	sym, err := validateCovariance(costs, cov)
	if err != nil {
		return nil, err
	}
	c := append([]float64(nil), costs...)
	return &ACV{
		variant:   variant,
		costs:     c,
		cov:       sym,
		objective: newACVObjective(variant, c, sym),
		opts:      applyOptions(opts),
	}, nil
}

// NewACVIS returns an ACV optimizer with independent samples.
func NewACVIS(costs []float64, cov mat.Symmetric, opts ...Option) (*ACV, error) {
	return NewACV(ISVariant{}, costs, cov, opts...)
}

// NewACVMF returns an ACV optimizer with the multifidelity sampling scheme.
func NewACVMF(costs []float64, cov mat.Symmetric, opts ...Option) (*ACV, error) {
	return NewACV(MFVariant{}, costs, cov, opts...)
}

func validateCovariance(costs []float64, cov mat.Symmetric) (*mat.SymDense, error) {
	if len(costs) == 0 {
		return nil, fmt.Errorf("%w: no model costs", model.ErrInvalidInput)
	}
	for i, c := range costs {
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: cost of model %d is %v", model.ErrInvalidInput, i, c)
		}
	}
	if cov == nil {
		return nil, fmt.Errorf("%w: nil covariance", model.ErrInvalidInput)
	}
	n := cov.SymmetricDim()
	if n != len(costs) {
		return nil, &model.DimensionError{What: "covariance", Expected: len(costs), Actual: n}
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := cov.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: covariance entry (%d,%d) is %v", model.ErrInvalidInput, i, j, v)
			}
			sym.SetSym(i, j, v)
		}
	}
	if !(sym.At(0, 0) > 0) {
		return nil, fmt.Errorf("%w: variance of the high fidelity model must be positive", model.ErrInvalidInput)
	}
	return sym, nil
}

// NumModels returns the number of models.
func (o *ACV) NumModels() int { return len(o.costs) }

// Method returns the method tag of the variant.
func (o *ACV) Method() string { return o.variant.Method() }

// Variance returns the estimator variance for ratios r at the given budget.
func (o *ACV) Variance(r []float64, targetCost float64) (float64, error) {
	if len(r) != len(o.costs)-1 {
		return 0, &model.DimensionError{What: "ratios", Expected: len(o.costs) - 1, Actual: len(r)}
	}
	return o.objective.Variance(r, targetCost)
}

// Optimize finds the allocation that minimises the variance within
// targetCost.
//
// A budget the constraints cannot admit, including zero and negative
// budgets, yields an invalid Result with infinite variance and a nil error.
func (o *ACV) Optimize(targetCost float64) (*Result, error) {
	if math.IsNaN(targetCost) || math.IsInf(targetCost, 1) {
		return nil, fmt.Errorf("%w: target cost %v", model.ErrInvalidInput, targetCost)
	}
	m := len(o.costs)
	method := o.Method()
	gen := o.constraintGenerator()
	if targetCost < o.minimumCost(gen) {
		o.opts.logger.Debug("budget below minimum feasible cost", "target_cost", targetCost, "method", method)
		return invalidResult(m, method, model.KindACV)
	}
	if m == 1 {
		return monteCarloResult(o.costs[0], o.cov.At(0, 0), targetCost, method, model.KindACV)
	}

	ratios, err := o.solve(gen, targetCost)
	if err != nil {
		return nil, err
	}

	n0 := referenceSamples(o.costs, ratios, targetCost)
	nums := make([]int, m)
	if nums[0], err = sampleCount(n0); err != nil {
		return nil, err
	}
	for i, r := range ratios {
		if nums[i+1], err = sampleCount(n0 * r); err != nil {
			return nil, err
		}
	}
	if nums[0] < 1 {
		return nil, fmt.Errorf("%w: reference sample count %g floors to zero", model.ErrSolverFailed, n0)
	}
	if err := checkSampleTotal(nums); err != nil {
		return nil, err
	}

	intRatios := make([]float64, m-1)
	cost := o.costs[0] * float64(nums[0])
	for i := 1; i < m; i++ {
		intRatios[i-1] = float64(nums[i]) / float64(nums[0])
		cost += o.costs[i] * float64(nums[i])
	}
	variance, err := o.objective.Variance(intRatios, cost)
	if err != nil {
		return nil, err
	}

	alloc, err := allocation.New(o.variant.Allocation(nums), method, allocation.WithKind(model.KindACV))
	if err != nil {
		return nil, err
	}

	o.opts.logger.Info("optimized allocation",
		"method", method,
		"target_cost", targetCost,
		"cost", cost,
		"variance", variance,
		"samples", nums,
	)
	return &Result{Cost: cost, Variance: variance, Allocation: alloc}, nil
}

func (o *ACV) constraintGenerator() ConstraintGenerator {
	if o.opts.constraints != nil {
		return o.opts.constraints
	}
	return NewACVConstraints(o.costs)
}

// minimumCost is the smallest budget worth handing to the solver. Below the
// bound of a MinimumCoster the feasible set is empty; the margin covers the
// tightening by the feasibility tolerance.
func (o *ACV) minimumCost(gen ConstraintGenerator) float64 {
	floor := sum(o.costs)
	if len(o.costs) == 1 {
		return floor
	}
	if mc, ok := gen.(MinimumCoster); ok {
		floor = math.Max(floor, mc.MinimumCost()*(1+2*o.opts.settings.FeasibilityTolerance))
	}
	return floor
}

func (o *ACV) solve(gen ConstraintGenerator, targetCost float64) ([]float64, error) {

	obj := func(grad, r []float64) (float64, error) {
		if grad == nil {
			return o.objective.Variance(r, targetCost)
		}
		return o.objective.VarianceGrad(grad, r, targetCost)
	}

	r0 := make([]float64, len(o.costs)-1)
	for i := range r0 {
		r0[i] = o.costs[0] / o.costs[i+1]
	}

	s := newSolver(obj, gen.Constraints(targetCost), o.opts.settings, o.opts.logger.With("method", o.Method()))
	return s.solve(r0)
}
