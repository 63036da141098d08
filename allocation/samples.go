package allocation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

// InputGenerator draws n random input rows.
type InputGenerator interface {
	GenerateSamples(n int) (*mat.Dense, error)
}

// GenerateSamples asks gen for one input row per sample and attaches the
// result.
func (a *SampleAllocation) GenerateSamples(gen InputGenerator) error {
	if gen == nil {
		return fmt.Errorf("%w: nil input generator", model.ErrInvalidInput)
	}
	samples, err := gen.GenerateSamples(a.numSamples)
	if err != nil {
		return fmt.Errorf("generate samples: %w", err)
	}
	if rows := denseRows(samples); rows < a.numSamples {
		return &model.SampleCountError{Required: a.numSamples, Available: rows}
	}
	a.samples = samples
	return nil
}

// SetSamples attaches an existing sample table.
func (a *SampleAllocation) SetSamples(samples *mat.Dense) error {
	if rows := denseRows(samples); rows < a.numSamples {
		return &model.SampleCountError{Required: a.numSamples, Available: rows}
	}
	a.samples = samples
	return nil
}

// HasSamples reports whether a sample table is attached.
func (a *SampleAllocation) HasSamples() bool {
	return denseRows(a.samples) > 0
}

// Samples returns the attached table, or nil.
func (a *SampleAllocation) Samples() *mat.Dense {
	if !a.HasSamples() {
		return nil
	}
	return a.samples
}

// SamplesForModel returns the input rows model i is evaluated on.
func (a *SampleAllocation) SamplesForModel(i int) (*mat.Dense, error) {
	if err := a.checkModel(i); err != nil {
		return nil, err
	}
	if !a.HasSamples() {
		return nil, model.ErrSamplesNotGenerated
	}
	return selectRows(a.samples, toInts(a.modelBitmap(i))), nil
}

// AllocateSamplesToModels splits an externally drawn input table into one
// table per model. inputs must have at least NumTotalSamples rows.
func (a *SampleAllocation) AllocateSamplesToModels(inputs *mat.Dense) ([]*mat.Dense, error) {
	if rows := denseRows(inputs); rows < a.numSamples {
		return nil, &model.SampleCountError{Required: a.numSamples, Available: rows}
	}
	out := make([]*mat.Dense, a.numModels)
	for i := range out {
		out[i] = selectRows(inputs, toInts(a.modelBitmap(i)))
	}
	return out, nil
}

func denseRows(d *mat.Dense) int {
	if d == nil || d.IsEmpty() {
		return 0
	}
	r, _ := d.Dims()
	return r
}

// selectRows copies the given rows of src. No rows yields an empty matrix.
func selectRows(src *mat.Dense, rows []int) *mat.Dense {
	if len(rows) == 0 {
		return &mat.Dense{}
	}
	_, cols := src.Dims()
	dst := mat.NewDense(len(rows), cols, nil)
	for j, r := range rows {
		dst.SetRow(j, src.RawRowView(r))
	}
	return dst
}
