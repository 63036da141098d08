package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
	"github.com/hupe1980/mxmc/testutil"
)

type fixedGenerator struct {
	table *mat.Dense
	err   error
	asked int
}

func (g *fixedGenerator) GenerateSamples(n int) (*mat.Dense, error) {
	g.asked = n
	return g.table, g.err
}

func rowsOf(d *mat.Dense, rows ...int) *mat.Dense {
	return selectRows(d, rows)
}

func TestGenerateSamples(t *testing.T) {
	a := threeModelAllocation(t)
	gen := &fixedGenerator{table: inputArray()}

	_, err := a.SamplesForModel(0)
	assert.ErrorIs(t, err, model.ErrSamplesNotGenerated)

	require.NoError(t, a.GenerateSamples(gen))
	assert.Equal(t, 16, gen.asked)
	assert.True(t, a.HasSamples())

	s0, err := a.SamplesForModel(0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(rowsOf(inputArray(), 0), s0))

	s2, err := a.SamplesForModel(2)
	require.NoError(t, err)
	r, _ := s2.Dims()
	assert.Equal(t, 15, r)
	assert.Equal(t, []float64{2, 3, 4}, s2.RawRowView(0))
}

func TestGenerateSamples_Errors(t *testing.T) {
	a := threeModelAllocation(t)

	err := a.GenerateSamples(&fixedGenerator{table: mat.NewDense(10, 3, nil)})
	assert.ErrorIs(t, err, model.ErrInsufficientSamples)
	var sce *model.SampleCountError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, 16, sce.Required)
	assert.Equal(t, 10, sce.Available)
	assert.False(t, a.HasSamples())

	boom := errors.New("boom")
	assert.ErrorIs(t, a.GenerateSamples(&fixedGenerator{err: boom}), boom)
	assert.ErrorIs(t, a.GenerateSamples(nil), model.ErrInvalidInput)
}

func TestSamplesForModel_EmptyModel(t *testing.T) {
	a, err := New([][]int{{4, 1, 0, 0}}, "MC")
	require.NoError(t, err)
	require.NoError(t, a.SetSamples(mat.NewDense(4, 2, nil)))

	s, err := a.SamplesForModel(1)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestAllocateSamplesToModels(t *testing.T) {
	a := threeModelAllocation(t)
	inputs := inputArray()

	got, err := a.AllocateSamplesToModels(inputs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, mat.Equal(rowsOf(inputs, 0), got[0]))
	assert.True(t, mat.Equal(rowsOf(inputs, 0, 1, 2, 3, 4, 5), got[1]))
	assert.True(t, mat.Equal(rowsOf(inputs, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15), got[2]))
}

func TestAllocateSamplesToModels_NotEnoughSamples(t *testing.T) {
	a := threeModelAllocation(t)

	_, err := a.AllocateSamplesToModels(mat.NewDense(10, 3, nil))
	assert.ErrorIs(t, err, model.ErrInsufficientSamples)

	_, err = a.AllocateSamplesToModels(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientSamples)
}

func TestGenerateSamples_RandomInputs(t *testing.T) {
	a := threeModelAllocation(t)
	gen := testutil.NewUniformInputGenerator(testutil.NewRNG(7), 2, 0, 1)

	require.NoError(t, a.GenerateSamples(gen))

	per, err := a.AllocateSamplesToModels(a.Samples())
	require.NoError(t, err)
	for i, counts := range a.SamplesPerModel() {
		if counts == 0 {
			continue
		}
		r, c := per[i].Dims()
		assert.Equal(t, counts, r)
		assert.Equal(t, 2, c)
	}
}
