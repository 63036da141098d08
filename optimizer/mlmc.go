package optimizer

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
)

// MLMC allocates samples for a multilevel Monte Carlo estimator.
//
// Models are ordered by descending cost. Level l pairs model l with model
// l+1; the last level is the cheapest model alone. Costs and level
// variances given in caller order are reordered together, so ModelOrder
// maps each level back to the caller's model index.
type MLMC struct {
	costs      []float64 // level order
	levelCosts []float64
	variances  []float64 // level order
	order      []int
	opts       options
}

var _ Optimizer = (*MLMC)(nil)

// NewMLMC returns an MLMC optimizer. variances[i] is the variance of the
// level whose fine model is model i; the entry for the cheapest model is
// its own output variance.
func NewMLMC(costs, variances []float64, opts ...Option) (*MLMC, error) {
	if len(costs) == 0 {
		return nil, fmt.Errorf("%w: no model costs", model.ErrInvalidInput)
	}
	if len(variances) != len(costs) {
		return nil, &model.DimensionError{What: "level variances", Expected: len(costs), Actual: len(variances)}
	}
	for i, c := range costs {
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: cost of model %d is %v", model.ErrInvalidInput, i, c)
		}
	}
	for i, v := range variances {
		if !(v >= 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: level variance %d is %v", model.ErrInvalidInput, i, v)
		}
	}

	m := len(costs)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return costs[order[a]] > costs[order[b]] })

	o := &MLMC{
		costs:      make([]float64, m),
		levelCosts: make([]float64, m),
		variances:  make([]float64, m),
		order:      order,
		opts:       applyOptions(opts),
	}
	for l, i := range order {
		o.costs[l] = costs[i]
		o.variances[l] = variances[i]
	}
	for l := 0; l < m-1; l++ {
		o.levelCosts[l] = o.costs[l] + o.costs[l+1]
	}
	o.levelCosts[m-1] = o.costs[m-1]
	return o, nil
}

// NewMLMCFromCovariance derives level variances from the model covariance:
// v_l = C_ll + C_{l+1,l+1} - 2 C_{l,l+1} in descending cost order, and the
// output variance of the cheapest model for the last level.
func NewMLMCFromCovariance(costs []float64, cov mat.Symmetric, opts ...Option) (*MLMC, error) {
	sym, err := validateCovariance(costs, cov)
	if err != nil {
		return nil, err
	}
	m := len(costs)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return costs[order[a]] > costs[order[b]] })

	variances := make([]float64, m)
	for l := 0; l < m; l++ {
		i := order[l]
		if l == m-1 {
			variances[i] = sym.At(i, i)
			continue
		}
		j := order[l+1]
		// Clamp round-off below zero.
		variances[i] = math.Max(0, sym.At(i, i)+sym.At(j, j)-2*sym.At(i, j))
	}
	return NewMLMC(costs, variances, opts...)
}

// NumModels returns the number of models.
func (o *MLMC) NumModels() int { return len(o.costs) }

// Method returns model.MethodMLMC.
func (o *MLMC) Method() string { return model.MethodMLMC }

// ModelOrder returns the caller's model index for each level position.
func (o *MLMC) ModelOrder() []int {
	return append([]int(nil), o.order...)
}

// Optimize allocates N_l = floor(mu sqrt(v_l / C_l)) with
// mu = T / sum_l sqrt(v_l C_l).
func (o *MLMC) Optimize(targetCost float64) (*Result, error) {
	if math.IsNaN(targetCost) || math.IsInf(targetCost, 1) {
		return nil, fmt.Errorf("%w: target cost %v", model.ErrInvalidInput, targetCost)
	}
	m := len(o.costs)
	if targetCost < sum(o.costs) {
		o.opts.logger.Debug("budget below total model cost", "target_cost", targetCost, "method", model.MethodMLMC)
		return invalidResult(m, model.MethodMLMC, model.KindMLMC)
	}
	if m == 1 {
		return monteCarloResult(o.costs[0], o.variances[0], targetCost, model.MethodMLMC, model.KindMLMC)
	}

	den := 0.0
	for l := range o.levelCosts {
		den += math.Sqrt(o.variances[l] * o.levelCosts[l])
	}
	if den == 0 {
		return nil, fmt.Errorf("%w: all level variances are zero", model.ErrInvalidInput)
	}
	mu := targetCost / den

	nums := make([]int, m)
	cost, variance := 0.0, 0.0
	for l := range nums {
		n, err := sampleCount(mu * math.Sqrt(o.variances[l]/o.levelCosts[l]))
		if err != nil {
			return nil, err
		}
		nums[l] = n
		cost += float64(nums[l]) * o.levelCosts[l]
		switch {
		case o.variances[l] == 0:
		case nums[l] == 0:
			variance = math.Inf(1)
		default:
			variance += o.variances[l] / float64(nums[l])
		}
	}

	if err := checkSampleTotal(nums); err != nil {
		return nil, err
	}
	alloc, err := allocation.New(mlmcRows(nums), model.MethodMLMC, allocation.WithKind(model.KindMLMC))
	if err != nil {
		return nil, err
	}

	o.opts.logger.Info("optimized allocation",
		"method", model.MethodMLMC,
		"target_cost", targetCost,
		"cost", cost,
		"variance", variance,
		"samples", nums,
	)
	return &Result{Cost: cost, Variance: variance, Allocation: alloc}, nil
}

// mlmcRows lays out one group per level. Level l evaluates the second term
// of model l and the first term of model l+1; level 0 also feeds the
// reference column.
func mlmcRows(nums []int) [][]int {
	m := len(nums)
	width := 2 * m
	rows := make([][]int, m)
	for l := range rows {
		row := make([]int, width)
		row[0] = nums[l]
		if l == 0 {
			row[1] = 1
		} else {
			row[2*l+1] = 1
		}
		if l < m-1 {
			row[2*(l+1)] = 1
		}
		rows[l] = row
	}
	return rows
}
