package estimator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
)

// controlVariate is the estimator
//
//	Q = mean(Q_0) + sum_i w_i (mean(Q_i on i_1) - mean(Q_i on i_2))
//
// with variance sigma0^2/n0 + w^T (C∘K) w + 2 w^T (k0∘c).
type controlVariate struct {
	alloc    *allocation.SampleAllocation
	weights  []float64
	variance float64
	counts   []int
}

// NewACV builds the ACV estimator with optimal weights
// w = -(C∘K)^-1 (k0∘c).
func NewACV(alloc *allocation.SampleAllocation, cov *mat.SymDense) (Estimator, error) {
	if alloc.NumModels() == 1 {
		return newControlVariate(alloc, cov, nil, nil, nil)
	}
	ck, k0c, err := correctionTerms(alloc, cov)
	if err != nil {
		return nil, err
	}

	m := len(k0c)
	var lu mat.LU
	lu.Factorize(ck)
	w := mat.NewVecDense(m, nil)
	if err := lu.SolveVecTo(w, false, mat.NewVecDense(m, k0c)); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: condition number %g", model.ErrSingularSystem, float64(cond))
		}
		return nil, fmt.Errorf("%w: %v", model.ErrSingularSystem, err)
	}
	weights := w.RawVector().Data
	floats.Scale(-1, weights)
	return newControlVariate(alloc, cov, weights, ck, k0c)
}

// NewMLMC builds the multilevel estimator: every weight is -1, so the
// level corrections telescope. The covariance must be in level order.
func NewMLMC(alloc *allocation.SampleAllocation, cov *mat.SymDense) (Estimator, error) {
	if alloc.NumModels() == 1 {
		return newControlVariate(alloc, cov, nil, nil, nil)
	}
	ck, k0c, err := correctionTerms(alloc, cov)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, alloc.NumModels()-1)
	for i := range weights {
		weights[i] = -1
	}
	return newControlVariate(alloc, cov, weights, ck, k0c)
}

// correctionTerms returns C∘K and k0∘c.
func correctionTerms(alloc *allocation.SampleAllocation, cov *mat.SymDense) (*mat.Dense, []float64, error) {
	k0, err := alloc.K0()
	if err != nil {
		return nil, nil, err
	}
	k, err := alloc.K()
	if err != nil {
		return nil, nil, err
	}
	m := len(k0)
	ck := mat.NewDense(m, m, nil)
	k0c := make([]float64, m)
	for i := 0; i < m; i++ {
		k0c[i] = k0[i] * cov.At(0, i+1)
		for j := 0; j < m; j++ {
			ck.Set(i, j, k.At(i, j)*cov.At(i+1, j+1))
		}
	}
	return ck, k0c, nil
}

func newControlVariate(alloc *allocation.SampleAllocation, cov *mat.SymDense, weights []float64, ck *mat.Dense, k0c []float64) (*controlVariate, error) {
	counts := alloc.SamplesPerModel()
	if counts[0] == 0 {
		return nil, fmt.Errorf("%w: reference model has no samples", model.ErrInvalidInput)
	}
	variance := cov.At(0, 0) / float64(counts[0])
	if len(weights) > 0 {
		w := mat.NewVecDense(len(weights), weights)
		variance += mat.Inner(w, ck, w) + 2*floats.Dot(weights, k0c)
	}
	return &controlVariate{
		alloc:    alloc,
		weights:  weights,
		variance: variance,
		counts:   counts,
	}, nil
}

func (e *controlVariate) Variance() float64 { return e.variance }

func (e *controlVariate) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

func (e *controlVariate) Estimate(outputs [][]float64) (float64, error) {
	if len(outputs) != len(e.counts) {
		return 0, &model.DimensionError{What: "model outputs", Expected: len(e.counts), Actual: len(outputs)}
	}
	for i, out := range outputs {
		if len(out) != e.counts[i] {
			return 0, &model.DimensionError{What: fmt.Sprintf("outputs of model %d", i), Expected: e.counts[i], Actual: len(out)}
		}
	}

	q := floats.Sum(outputs[0]) / float64(len(outputs[0]))
	for i, w := range e.weights {
		first, second, err := e.alloc.SampleSplitForModel(i + 1)
		if err != nil {
			return 0, err
		}
		q += w * (maskedMean(outputs[i+1], first) - maskedMean(outputs[i+1], second))
	}
	return q, nil
}

// maskedMean is zero when the mask selects nothing.
func maskedMean(xs []float64, mask []bool) float64 {
	s, n := 0.0, 0
	for j, ok := range mask {
		if ok {
			s += xs[j]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return s / float64(n)
}
