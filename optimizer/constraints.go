package optimizer

import "fmt"

// Constraint is an inequality Func(r) >= 0 over the ratio vector.
type Constraint struct {
	Name string
	Func func(r []float64) float64
	// Grad writes dFunc/dr into grad.
	Grad func(grad, r []float64)
}

// ConstraintGenerator builds the constraint set for a target cost.
type ConstraintGenerator interface {
	Constraints(targetCost float64) []Constraint
}

// MinimumCoster is implemented by constraint generators whose feasible set
// is empty below a fixed budget.
type MinimumCoster interface {
	// MinimumCost is the smallest target cost the constraints admit.
	MinimumCost() float64
}

// ACVConstraints requires that the budget affords at least one reference
// sample and that every auxiliary model gets at least one sample more than
// the reference model.
type ACVConstraints struct {
	Costs []float64
}

// NewACVConstraints returns the constraints for the given model costs.
func NewACVConstraints(costs []float64) *ACVConstraints {
	return &ACVConstraints{Costs: append([]float64(nil), costs...)}
}

// MinimumCost returns c_0 + 2 sum_{i>0} c_i: one reference sample and two
// samples of every auxiliary model.
func (c *ACVConstraints) MinimumCost() float64 {
	if len(c.Costs) == 0 {
		return 0
	}
	return c.Costs[0] + 2*sum(c.Costs[1:])
}

// Constraints returns N-1 >= 0 and N(r_i-1)-1 >= 0 for every auxiliary i.
func (c *ACVConstraints) Constraints(targetCost float64) []Constraint {
	costs := c.Costs
	out := make([]Constraint, 0, len(costs))

	out = append(out, Constraint{
		Name: "reference samples >= 1",
		Func: func(r []float64) float64 {
			return referenceSamples(costs, r, targetCost) - 1
		},
		Grad: func(grad, r []float64) {
			n := referenceSamples(costs, r, targetCost)
			for k := range grad {
				grad[k] = -n * n * costs[k+1] / targetCost
			}
		},
	})

	for i := 0; i < len(costs)-1; i++ {
		i := i
		out = append(out, Constraint{
			Name: fmt.Sprintf("model %d samples > reference samples", i+1),
			Func: func(r []float64) float64 {
				return referenceSamples(costs, r, targetCost)*(r[i]-1) - 1
			},
			Grad: func(grad, r []float64) {
				n := referenceSamples(costs, r, targetCost)
				for k := range grad {
					// dN/dr_k = -N^2 c_k / T
					grad[k] = -n * n * costs[k+1] / targetCost * (r[i] - 1)
				}
				grad[i] += n
			},
		})
	}
	return out
}

// referenceSamples is N = T / (c_0 + sum_i c_i r_i).
func referenceSamples(costs, r []float64, targetCost float64) float64 {
	den := costs[0]
	for i, ri := range r {
		den += costs[i+1] * ri
	}
	return targetCost / den
}
