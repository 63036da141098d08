package optimizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

// acvObjective evaluates the ACV estimator variance
//
//	V(r) = sigma0^2 / N(r) * (1 - R^2(r)),  R^2 = a^T (C∘F)^-1 a,  a = F0∘cbar
//
// and its exact gradient with respect to r.
type acvObjective struct {
	variant Variant
	costs   []float64
	sigma2  float64
	cbar    []float64
	bigC    *mat.SymDense
}

func newACVObjective(variant Variant, costs []float64, cov mat.Symmetric) *acvObjective {
	m := cov.SymmetricDim() - 1
	sigma2 := cov.At(0, 0)
	sigma := math.Sqrt(sigma2)

	cbar := make([]float64, m)
	bigC := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		cbar[i] = cov.At(0, i+1) / sigma
		for j := i; j < m; j++ {
			bigC.SetSym(i, j, cov.At(i+1, j+1))
		}
	}
	return &acvObjective{
		variant: variant,
		costs:   costs,
		sigma2:  sigma2,
		cbar:    cbar,
		bigC:    bigC,
	}
}

// rSquared solves (C∘F) alpha = a and returns a·alpha, a and alpha.
func (o *acvObjective) rSquared(r []float64) (float64, []float64, []float64, error) {
	m := len(r)
	F, F0 := o.variant.Weights(r)

	A := mat.NewDense(m, m, nil)
	a := make([]float64, m)
	for i := 0; i < m; i++ {
		a[i] = F0[i] * o.cbar[i]
		for j := 0; j < m; j++ {
			A.Set(i, j, o.bigC.At(i, j)*F.At(i, j))
		}
	}

	var lu mat.LU
	lu.Factorize(A)
	alpha := mat.NewVecDense(m, nil)
	if err := lu.SolveVecTo(alpha, false, mat.NewVecDense(m, a)); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return 0, nil, nil, fmt.Errorf("%w: condition number %g", model.ErrSingularSystem, float64(cond))
		}
		return 0, nil, nil, fmt.Errorf("%w: %v", model.ErrSingularSystem, err)
	}
	al := alpha.RawVector().Data
	return floats.Dot(a, al), a, al, nil
}

// Variance returns V(r) at reference sample count N(r, targetCost).
func (o *acvObjective) Variance(r []float64, targetCost float64) (float64, error) {
	r2, _, _, err := o.rSquared(r)
	if err != nil {
		return 0, err
	}
	n := referenceSamples(o.costs, r, targetCost)
	return o.sigma2 / n * (1 - r2), nil
}

// VarianceGrad returns V(r) and writes dV/dr into grad.
//
// With A = C∘F symmetric, dR^2/dr_k = 2 da·alpha - alpha^T dA alpha where
// da = F0'∘cbar and dA = C∘F'. Since dN/dr_k = -N^2 c_k / T,
// dV/dr_k = sigma0^2 [ c_k/T (1-R^2) - dR^2/N ].
func (o *acvObjective) VarianceGrad(grad, r []float64, targetCost float64) (float64, error) {
	r2, _, alpha, err := o.rSquared(r)
	if err != nil {
		return 0, err
	}
	n := referenceSamples(o.costs, r, targetCost)
	m := len(r)

	for k := 0; k < m; k++ {
		dF, dF0 := o.variant.WeightsGrad(r, k)
		dr2 := 0.0
		for i := 0; i < m; i++ {
			dr2 += 2 * dF0[i] * o.cbar[i] * alpha[i]
			for j := 0; j < m; j++ {
				if d := dF.At(i, j); d != 0 {
					dr2 -= alpha[i] * o.bigC.At(i, j) * d * alpha[j]
				}
			}
		}
		grad[k] = o.sigma2 * (o.costs[k+1]/targetCost*(1-r2) - dr2/n)
	}
	return o.sigma2 / n * (1 - r2), nil
}
