package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
	"github.com/hupe1980/mxmc/testutil"
)

func threeModelCov() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		1.0, 0.9, 0.8,
		0.9, 1.1, 0.7,
		0.8, 0.7, 1.3,
	})
}

func twoModelCov() *mat.SymDense {
	return mat.NewSymDense(2, []float64{
		1.0, 0.9,
		0.9, 1.0,
	})
}

func variants() map[string]Variant {
	return map[string]Variant{
		model.MethodACVIS: ISVariant{},
		model.MethodACVMF: MFVariant{},
	}
}

func TestNewACVValidation(t *testing.T) {
	_, err := NewACVIS([]float64{1, 0.1}, threeModelCov())
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)

	_, err = NewACVIS(nil, threeModelCov())
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewACVIS([]float64{1, 0, 0.1}, threeModelCov())
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewACVIS([]float64{1, 0.1}, mat.NewSymDense(2, []float64{0, 0, 0, 1}))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewACVIS([]float64{1, 0.1}, mat.NewSymDense(2, []float64{1, math.NaN(), math.NaN(), 1}))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewACV(nil, []float64{1}, mat.NewSymDense(1, []float64{1}))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestACVInfeasibleBudget(t *testing.T) {
	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, []float64{1, 0.5, 0.25}, threeModelCov())
			require.NoError(t, err)

			res, err := o.Optimize(1.5)
			require.NoError(t, err)
			assert.False(t, res.Valid())
			assert.Equal(t, 0.0, res.Cost)
			assert.True(t, math.IsInf(res.Variance, 1))
			assert.Equal(t, [][]int{{1, 1, 1, 1, 1, 1}}, res.Allocation.Compressed())
			assert.Equal(t, name, res.Allocation.Method())
			assert.Equal(t, model.KindACV, res.Allocation.Kind())
		})
	}
}

func TestACVInvalidTargetCost(t *testing.T) {
	o, err := NewACVIS([]float64{1, 0.5}, twoModelCov())
	require.NoError(t, err)

	for _, tc := range []float64{math.NaN(), math.Inf(1)} {
		_, err := o.Optimize(tc)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	}
}

func TestACVNonPositiveBudgetIsInfeasible(t *testing.T) {
	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, []float64{1, 0.5}, twoModelCov())
			require.NoError(t, err)

			for _, tc := range []float64{-1, 0.5, 0, math.Inf(-1)} {
				res, err := o.Optimize(tc)
				require.NoError(t, err, "target %g", tc)
				assert.False(t, res.Valid())
				assert.Equal(t, 0.0, res.Cost)
				assert.Equal(t, [][]int{{1, 1, 1, 1}}, res.Allocation.Compressed())
			}
		})
	}
}

func TestACVBudgetBelowMinimumCost(t *testing.T) {
	costs := []float64{1, 0.5}
	assert.InDelta(t, 2.0, NewACVConstraints(costs).MinimumCost(), 1e-12)

	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, costs, twoModelCov())
			require.NoError(t, err)

			for _, tc := range []float64{1.5, 1.9} {
				res, err := o.Optimize(tc)
				require.NoError(t, err, "target %g", tc)
				assert.False(t, res.Valid(), "target %g", tc)
				assert.True(t, math.IsInf(res.Variance, 1))
			}

			res, err := o.Optimize(4)
			require.NoError(t, err)
			require.True(t, res.Valid())
			assert.LessOrEqual(t, res.Cost, 4.0)
			counts := res.Allocation.SamplesPerModel()
			assert.GreaterOrEqual(t, counts[0], 1)
			assert.Greater(t, counts[1], counts[0])
		})
	}
}

func TestSampleCountRange(t *testing.T) {
	n, err := sampleCount(2.9999999999)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, x := range []float64{1e12, -1, math.NaN(), math.Inf(1)} {
		_, err := sampleCount(x)
		assert.ErrorIs(t, err, model.ErrInvalidInput, "x=%g", x)
	}

	assert.NoError(t, checkSampleTotal([]int{1 << 31, 1 << 30}))
	assert.ErrorIs(t, checkSampleTotal([]int{1 << 31, 1 << 31}), model.ErrInvalidInput)

	o, err := NewACVMF([]float64{1}, mat.NewSymDense(1, []float64{4}))
	require.NoError(t, err)
	_, err = o.Optimize(1e12)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestACVSingleModelIsMonteCarlo(t *testing.T) {
	o, err := NewACVMF([]float64{1}, mat.NewSymDense(1, []float64{4}))
	require.NoError(t, err)

	res, err := o.Optimize(10.5)
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, 10.0, res.Cost)
	assert.InDelta(t, 0.4, res.Variance, 1e-15)
	assert.Equal(t, [][]int{{10, 1}}, res.Allocation.Compressed())
}

func TestACVTwoModels(t *testing.T) {
	// With rho^2 = 0.81 the unconstrained optimum r = 1.19 violates
	// N(r-1) >= 1, so the solution sits on that constraint at r = 1.8,
	// N = 1.25.
	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, []float64{1, 3}, twoModelCov())
			require.NoError(t, err)

			res, err := o.Optimize(8)
			require.NoError(t, err)
			require.True(t, res.Valid())

			counts := res.Allocation.SamplesPerModel()
			n0, n1 := counts[0], counts[1]
			assert.Equal(t, 1, n0)
			assert.Equal(t, 2, n1)
			assert.Equal(t, float64(n0)*1+float64(n1)*3, res.Cost)
			assert.LessOrEqual(t, res.Cost, 8.0)

			want := 1.0 / float64(n0) * (1 - 0.81*(1-float64(n0)/float64(n1)))
			assert.InDelta(t, want, res.Variance, 1e-12)
		})
	}
}

func TestACVRespectsBudgetAndImprovesOnMonteCarlo(t *testing.T) {
	costs := []float64{1, 0.1, 0.01}
	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, costs, threeModelCov())
			require.NoError(t, err)

			res, err := o.Optimize(100)
			require.NoError(t, err)
			require.True(t, res.Valid())
			assert.LessOrEqual(t, res.Cost, 100.0)

			counts := res.Allocation.SamplesPerModel()
			assert.GreaterOrEqual(t, counts[0], 1)
			// Monte Carlo with the same budget.
			assert.Less(t, res.Variance, 1.0/100)
		})
	}
}

func TestACVVarianceDecreasesWithBudget(t *testing.T) {
	costs := []float64{1, 0.2, 0.05}
	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, costs, threeModelCov())
			require.NoError(t, err)

			small, err := o.Optimize(1000)
			require.NoError(t, err)
			large, err := o.Optimize(2000)
			require.NoError(t, err)

			assert.Less(t, large.Variance, small.Variance)
			assert.InDelta(t, small.Variance/2, large.Variance, small.Variance*0.05)
		})
	}
}

func TestACVSingularCovariance(t *testing.T) {
	// The first auxiliary model has zero variance, so C∘F has a zero row.
	cov := mat.NewSymDense(3, []float64{
		1, 0, 0,
		0, 0, 0,
		0, 0, 1,
	})
	o, err := NewACVIS([]float64{1, 0.1, 0.01}, cov)
	require.NoError(t, err)

	_, err = o.Optimize(100)
	assert.ErrorIs(t, err, model.ErrSingularSystem)
}

func TestACVVarianceGradient(t *testing.T) {
	costs := []float64{1, 0.2, 0.05}
	r := []float64{2.5, 7.3}
	const target = 50.0
	const h = 1e-6

	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			obj := newACVObjective(v, costs, threeModelCov())

			grad := make([]float64, len(r))
			val, err := obj.VarianceGrad(grad, r, target)
			require.NoError(t, err)

			plain, err := obj.Variance(r, target)
			require.NoError(t, err)
			assert.InDelta(t, plain, val, 1e-15)

			for k := range r {
				up := append([]float64(nil), r...)
				down := append([]float64(nil), r...)
				up[k] += h
				down[k] -= h
				fu, err := obj.Variance(up, target)
				require.NoError(t, err)
				fd, err := obj.Variance(down, target)
				require.NoError(t, err)

				fd1 := (fu - fd) / (2 * h)
				assert.InDelta(t, fd1, grad[k], 1e-6*math.Max(1, math.Abs(fd1)), "component %d", k)
			}
		})
	}
}

func TestACVConstraintGradients(t *testing.T) {
	costs := []float64{1, 0.2, 0.05}
	r := []float64{2.5, 7.3}
	const target = 50.0
	const h = 1e-6

	for _, c := range NewACVConstraints(costs).Constraints(target) {
		grad := make([]float64, len(r))
		c.Grad(grad, r)
		for k := range r {
			up := append([]float64(nil), r...)
			down := append([]float64(nil), r...)
			up[k] += h
			down[k] -= h
			fd := (c.Func(up) - c.Func(down)) / (2 * h)
			assert.InDelta(t, fd, grad[k], 1e-5*math.Max(1, math.Abs(fd)), "%s component %d", c.Name, k)
		}
	}
}

func TestVariantAllocationMatchesWeights(t *testing.T) {
	nums := []int{4, 20, 12, 40}
	r := []float64{5, 3, 10}

	for name, v := range variants() {
		t.Run(name, func(t *testing.T) {
			o, err := NewACV(v, []float64{1, 0.1, 0.1, 0.01}, mat.NewSymDense(4, []float64{
				1, 0.5, 0.5, 0.5,
				0.5, 1, 0.5, 0.5,
				0.5, 0.5, 1, 0.5,
				0.5, 0.5, 0.5, 1,
			}))
			require.NoError(t, err)

			alloc, err := allocation.New(v.Allocation(nums), o.Method())
			require.NoError(t, err)
			assert.Equal(t, nums, alloc.SamplesPerModel())

			F, F0 := v.Weights(r)
			k0, err := alloc.K0()
			require.NoError(t, err)
			k, err := alloc.K()
			require.NoError(t, err)

			n0 := float64(nums[0])
			for i := range r {
				assert.InDelta(t, F0[i], k0[i]*n0, 1e-12)
				for j := range r {
					assert.InDelta(t, F.At(i, j), k.At(i, j)*n0, 1e-12)
				}
			}
		})
	}
}

func TestWithSolverSettingsKeepsDefaults(t *testing.T) {
	o := applyOptions([]Option{WithSolverSettings(SolverSettings{OuterIterations: 5})})
	assert.Equal(t, 5, o.settings.OuterIterations)
	assert.Equal(t, DefaultSolverSettings().InnerIterations, o.settings.InnerIterations)
	assert.Equal(t, DefaultSolverSettings().FeasibilityTolerance, o.settings.FeasibilityTolerance)
}

func TestOptimizersOnRandomEnsembles(t *testing.T) {
	rng := testutil.NewRNG(4711)
	costs := testutil.DecreasingCosts(4, 5)

	for trial := range 3 {
		cov := rng.Covariance(4)
		builders := map[string]func() (Optimizer, error){
			model.MethodACVIS: func() (Optimizer, error) { return NewACVIS(costs, cov) },
			model.MethodACVMF: func() (Optimizer, error) { return NewACVMF(costs, cov) },
			model.MethodMLMC:  func() (Optimizer, error) { return NewMLMCFromCovariance(costs, cov) },
		}
		for name, build := range builders {
			o, err := build()
			require.NoError(t, err, "trial %d %s", trial, name)

			res, err := o.Optimize(50)
			require.NoError(t, err, "trial %d %s", trial, name)
			assert.True(t, res.Valid(), "trial %d %s", trial, name)
			assert.LessOrEqual(t, res.Cost, 50.0+1e-9)
			assert.Greater(t, res.Variance, 0.0)
			assert.False(t, math.IsInf(res.Variance, 0))
		}
	}
}
