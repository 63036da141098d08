package allocation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

func threeModelCompressed() [][]int {
	return [][]int{
		{1, 1, 1, 1, 0, 0},
		{5, 0, 1, 1, 1, 1},
		{10, 0, 0, 0, 1, 1},
	}
}

func threeModelAllocation(t *testing.T) *SampleAllocation {
	t.Helper()
	a, err := New(threeModelCompressed(), "MFMC")
	require.NoError(t, err)
	return a
}

func inputArray() *mat.Dense {
	return mat.NewDense(16, 3, []float64{
		1, 2, 3,
		2, 3, 4,
		3, 4, 5,
		6.4, 3, 7,
		2.4, 34.5, 54,
		12, 3, 4,
		2, 13, 4,
		2, 38, 14,
		2.4, 83, 4.1,
		28, 3.4, 4,
		24, 3, 4,
		2.8, 43, 4,
		2, 3.7, 44,
		42, 37, 74,
		72, 4.3, 4,
		27, 3, 9.4,
	})
}

func TestNew(t *testing.T) {
	a := threeModelAllocation(t)

	assert.Equal(t, 3, a.NumModels())
	assert.Equal(t, 16, a.NumTotalSamples())
	assert.Equal(t, "MFMC", a.Method())
	assert.Equal(t, model.KindUnknown, a.Kind())
	assert.Equal(t, threeModelCompressed(), a.Compressed())
	assert.Equal(t, []string{"0", "1_1", "1_2", "2_1", "2_2"}, a.ColumnNames())
}

func TestNew_KindFromMethodAndOption(t *testing.T) {
	a, err := New([][]int{{10, 1, 1, 0}}, model.MethodACVMF)
	require.NoError(t, err)
	assert.Equal(t, model.KindACV, a.Kind())

	a, err = New([][]int{{10, 1, 1, 0}}, "custom", WithKind(model.KindMLMC))
	require.NoError(t, err)
	assert.Equal(t, model.KindMLMC, a.Kind())
}

func TestNew_OneModel(t *testing.T) {
	a, err := New([][]int{{10, 1}}, "MC")
	require.NoError(t, err)
	assert.Equal(t, 1, a.NumModels())
	assert.Equal(t, []int{10}, a.SamplesPerModel())
	assert.Equal(t, []string{"0"}, a.ColumnNames())
}

func TestNew_Malformed(t *testing.T) {
	tests := []struct {
		name       string
		compressed [][]int
		method     string
	}{
		{"empty", nil, "m"},
		{"odd width", [][]int{{1, 1, 1}}, "m"},
		{"width one", [][]int{{1}}, "m"},
		{"ragged", [][]int{{1, 1, 0, 0}, {1, 1}}, "m"},
		{"negative size", [][]int{{-1, 1, 0, 0}}, "m"},
		{"bad bit", [][]int{{1, 2, 0, 0}}, "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.compressed, tt.method)
			assert.ErrorIs(t, err, model.ErrMalformedAllocation)
		})
	}
}

func TestNew_EmptyMethodTag(t *testing.T) {
	a, err := New([][]int{{2, 1, 1, 0}, {3, 0, 0, 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, "", a.Method())
	assert.Equal(t, 2, a.NumModels())

	var buf bytes.Buffer
	_, err = a.WriteTo(&buf)
	require.NoError(t, err)
	b, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "", b.Method())
	assert.Equal(t, a.Compressed(), b.Compressed())
}

func TestExpanded(t *testing.T) {
	a := threeModelAllocation(t)

	expected := [][]int{{1, 1, 1, 0, 0}}
	for i := 0; i < 5; i++ {
		expected = append(expected, []int{0, 1, 1, 1, 1})
	}
	for i := 0; i < 10; i++ {
		expected = append(expected, []int{0, 0, 0, 1, 1})
	}
	assert.Equal(t, expected, a.Expanded())
}

func TestExpanded_ZeroSizeGroupsContributeNothing(t *testing.T) {
	a, err := New([][]int{{0, 1, 1, 1}, {3, 0, 0, 1}}, "m")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, a.Expanded())
	assert.Equal(t, []int{0, 3}, a.SamplesPerModel())
}

func TestSamplesPerModel(t *testing.T) {
	a := threeModelAllocation(t)
	assert.Equal(t, []int{1, 6, 15}, a.SamplesPerModel())

	mc, err := New([][]int{{10, 1, 0, 0, 0, 0}}, "MC")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 0, 0}, mc.SamplesPerModel())
}

func TestSampleIndicesForModel(t *testing.T) {
	a := threeModelAllocation(t)

	idx, err := a.SampleIndicesForModel(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx)

	idx, err = a.SampleIndicesForModel(1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, idx)

	idx, err = a.SampleIndicesForModel(2)
	require.NoError(t, err)
	assert.Len(t, idx, 15)
	assert.Equal(t, 1, idx[0])
	assert.Equal(t, 15, idx[14])

	_, err = a.SampleIndicesForModel(3)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSampleSplitForModel(t *testing.T) {
	a, err := New([][]int{
		{2, 1, 1, 0},
		{3, 0, 0, 1},
		{1, 0, 1, 1},
	}, "m")
	require.NoError(t, err)

	first, second, err := a.SampleSplitForModel(1)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, false, false, true}, first)
	assert.Equal(t, []bool{false, false, true, true, true, true}, second)

	_, _, err = a.SampleSplitForModel(0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestK0AndK(t *testing.T) {
	// Independent-sampling layout: n0=2, n_1_1=2, n_1_2=5, n_2_1=2, n_2_2=6.
	a, err := New([][]int{
		{2, 1, 1, 1, 1, 1},
		{3, 0, 0, 1, 0, 0},
		{4, 0, 0, 0, 0, 1},
	}, model.MethodACVIS)
	require.NoError(t, err)

	k0, err := a.K0()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.3, 1.0 / 3}, k0, 1e-12)

	k, err := a.K()
	require.NoError(t, err)
	r, c := k.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)

	assert.InDelta(t, 0.3, k.At(0, 0), 1e-12)
	assert.InDelta(t, 0.2, k.At(0, 1), 1e-12)
	assert.InDelta(t, 0.2, k.At(1, 0), 1e-12)
	assert.InDelta(t, 1.0/3, k.At(1, 1), 1e-12)
}

func TestK0AndK_FullySharedSamplesCancel(t *testing.T) {
	a := threeModelAllocation(t)

	k0, err := a.K0()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, k0, 1e-12)

	k, err := a.K()
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(k, mat.NewDense(2, 2, nil), 1e-12))
}

func TestK0AndK_OneModel(t *testing.T) {
	a, err := New([][]int{{10, 1}}, "MC")
	require.NoError(t, err)

	_, err = a.K0()
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
	_, err = a.K()
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
}
