package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

func TestMLMCOptimize(t *testing.T) {
	o, err := NewMLMC([]float64{1, 3}, []float64{4, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, o.ModelOrder())
	assert.Equal(t, 2, o.NumModels())
	assert.Equal(t, model.MethodMLMC, o.Method())

	res, err := o.Optimize(8)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 1, 1, 0}, {4, 0, 0, 1}}, res.Allocation.Compressed())
	assert.InDelta(t, 2.0, res.Variance, 1e-12)
	assert.InDelta(t, 8.0, res.Cost, 1e-12)
	assert.Equal(t, model.KindMLMC, res.Allocation.Kind())

	res, err = o.Optimize(16)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 1, 1, 0}, {8, 0, 0, 1}}, res.Allocation.Compressed())
	assert.InDelta(t, 1.0, res.Variance, 1e-12)
	assert.InDelta(t, 16.0, res.Cost, 1e-12)
}

func TestMLMCThreeLevelLayout(t *testing.T) {
	o, err := NewMLMC([]float64{10, 1, 0.1}, []float64{1, 1, 1})
	require.NoError(t, err)

	res, err := o.Optimize(1000)
	require.NoError(t, err)
	rows := res.Allocation.Compressed()
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 1, 0, 0, 0}, rows[0][1:])
	assert.Equal(t, []int{0, 0, 1, 1, 0}, rows[1][1:])
	assert.Equal(t, []int{0, 0, 0, 0, 1}, rows[2][1:])
	assert.LessOrEqual(t, res.Cost, 1000.0)
}

func TestMLMCInfeasibleAndSingleModel(t *testing.T) {
	o, err := NewMLMC([]float64{1, 3}, []float64{4, 1})
	require.NoError(t, err)

	res, err := o.Optimize(3)
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, [][]int{{1, 1, 1, 1}}, res.Allocation.Compressed())

	single, err := NewMLMC([]float64{2}, []float64{3})
	require.NoError(t, err)
	res, err = single.Optimize(9)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{4, 1}}, res.Allocation.Compressed())
	assert.InDelta(t, 8.0, res.Cost, 1e-12)
	assert.InDelta(t, 0.75, res.Variance, 1e-12)
}

func TestMLMCZeroVarianceLevel(t *testing.T) {
	o, err := NewMLMC([]float64{1, 3}, []float64{4, 0})
	require.NoError(t, err)

	res, err := o.Optimize(8)
	require.NoError(t, err)
	// All budget goes to the cheapest level.
	assert.Equal(t, 0, res.Allocation.Compressed()[0][0])
	assert.InDelta(t, 4.0/8, res.Variance, 1e-12)
	assert.False(t, math.IsInf(res.Variance, 1))
}

func TestMLMCNonPositiveBudgetIsInfeasible(t *testing.T) {
	o, err := NewMLMC([]float64{1, 3}, []float64{4, 1})
	require.NoError(t, err)

	for _, tc := range []float64{-1, 0.5, 0} {
		res, err := o.Optimize(tc)
		require.NoError(t, err, "target %g", tc)
		assert.False(t, res.Valid())
		assert.Equal(t, 0.0, res.Cost)
		assert.Equal(t, [][]int{{1, 1, 1, 1}}, res.Allocation.Compressed())
	}

	_, err = o.Optimize(math.NaN())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = o.Optimize(1e12)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMLMCValidation(t *testing.T) {
	_, err := NewMLMC([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)

	_, err = NewMLMC([]float64{1, -2}, []float64{1, 1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewMLMC([]float64{1, 2}, []float64{1, -1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = NewMLMC(nil, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	o, err := NewMLMC([]float64{1, 2}, []float64{0, 0})
	require.NoError(t, err)
	_, err = o.Optimize(10)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestNewMLMCFromCovariance(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{
		1.0, 0.9, 0.8,
		0.9, 1.1, 0.7,
		0.8, 0.7, 1.3,
	})
	// Caller order costs: model 2 is the most expensive.
	o, err := NewMLMCFromCovariance([]float64{1, 0.1, 5}, cov)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, o.ModelOrder())

	want := []float64{
		1.3 + 1.0 - 2*0.8, // levels (2, 0)
		1.0 + 1.1 - 2*0.9, // levels (0, 1)
		1.1,               // model 1 alone
	}
	assert.InDeltaSlice(t, want, o.variances, 1e-12)
	assert.InDeltaSlice(t, []float64{6, 1.1, 0.1}, o.levelCosts, 1e-12)
}
