package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCovarianceIsPositiveDefinite(t *testing.T) {
	rng := NewRNG(4711)

	for _, m := range []int{1, 3, 6} {
		cov := rng.Covariance(m)
		assert.Equal(t, m, cov.SymmetricDim())

		var chol mat.Cholesky
		assert.True(t, chol.Factorize(cov), "m=%d", m)
	}
}

func TestCorrelatedCovariance(t *testing.T) {
	cov := CorrelatedCovariance(3, 0.5)

	assert.Equal(t, 1.0, cov.At(0, 0))
	assert.Equal(t, 0.5, cov.At(0, 1))
	assert.Equal(t, 0.25, cov.At(2, 0))
	assert.Equal(t, 0.5, cov.At(2, 1))
}

func TestDecreasingCosts(t *testing.T) {
	assert.InDeltaSlice(t, []float64{1, 0.1, 0.01}, DecreasingCosts(3, 10), 1e-12)
}

func TestUniformInputGenerator(t *testing.T) {
	gen := NewUniformInputGenerator(NewRNG(4711), 2, -1, 1)

	samples, err := gen.GenerateSamples(50)
	require.NoError(t, err)

	r, c := samples.Dims()
	assert.Equal(t, 50, r)
	assert.Equal(t, 2, c)
	for i := range r {
		for j := range c {
			assert.GreaterOrEqual(t, samples.At(i, j), -1.0)
			assert.Less(t, samples.At(i, j), 1.0)
		}
	}

	_, err = gen.GenerateSamples(0)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Float64()
	rng.Reset()
	assert.Equal(t, a, rng.Float64())
	assert.Equal(t, int64(4711), rng.Seed())
}
