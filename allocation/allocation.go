package allocation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

// SampleAllocation is an immutable sample allocation. Only the attached
// sample table may change after construction.
type SampleAllocation struct {
	compressed [][]int
	numModels  int
	numSamples int
	method     string
	kind       model.Kind

	// columns[c] holds the sample indices whose expanded column c is set.
	columns []*roaring.Bitmap

	samples *mat.Dense
}

// New validates a compact allocation and expands it.
func New(compressed [][]int, method string, opts ...Option) (*SampleAllocation, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	numModels, err := modelsFromWidth(compressed)
	if err != nil {
		return nil, err
	}

	total := 0
	for r, row := range compressed {
		if row[0] < 0 {
			return nil, fmt.Errorf("%w: row %d has negative group size %d", model.ErrMalformedAllocation, r, row[0])
		}
		for c, bit := range row[1:] {
			if bit != 0 && bit != 1 {
				return nil, fmt.Errorf("%w: row %d column %d holds %d", model.ErrMalformedAllocation, r, c+1, bit)
			}
		}
		total += row[0]
		if uint64(total) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: more than %d samples", model.ErrMalformedAllocation, uint64(math.MaxUint32))
		}
	}

	a := &SampleAllocation{
		compressed: cloneRows(compressed),
		numModels:  numModels,
		numSamples: total,
		method:     method,
		kind:       model.KindForMethod(method),
		columns:    newColumns(numModels),
	}
	if o.hasKind {
		a.kind = o.kind
	}

	start := uint64(0)
	for _, row := range compressed {
		end := start + uint64(row[0])
		if end > start {
			for c, bit := range row[1:] {
				if bit == 1 {
					a.columns[c].AddRange(start, end)
				}
			}
		}
		start = end
	}
	return a, nil
}

func modelsFromWidth(compressed [][]int) (int, error) {
	if len(compressed) == 0 {
		return 0, fmt.Errorf("%w: no sample groups", model.ErrMalformedAllocation)
	}
	width := len(compressed[0])
	for r, row := range compressed {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d entries, row 0 has %d", model.ErrMalformedAllocation, r, len(row), width)
		}
	}
	if width < 2 || width%2 != 0 {
		return 0, fmt.Errorf("%w: row width %d does not describe a whole number of models", model.ErrMalformedAllocation, width)
	}
	return width / 2, nil
}

func newColumns(numModels int) []*roaring.Bitmap {
	cols := make([]*roaring.Bitmap, 2*numModels-1)
	for i := range cols {
		cols[i] = roaring.New()
	}
	return cols
}

func cloneRows(rows [][]int) [][]int {
	out := make([][]int, len(rows))
	for i, row := range rows {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// NumModels returns M.
func (a *SampleAllocation) NumModels() int { return a.numModels }

// NumTotalSamples returns the number of expanded rows.
func (a *SampleAllocation) NumTotalSamples() int { return a.numSamples }

// Method returns the method tag.
func (a *SampleAllocation) Method() string { return a.method }

// Kind returns the allocation kind used for estimator dispatch.
func (a *SampleAllocation) Kind() model.Kind { return a.kind }

// Compressed returns a copy of the compact allocation.
func (a *SampleAllocation) Compressed() [][]int { return cloneRows(a.compressed) }

// ColumnNames returns "0", "1_1", "1_2", ... for the expanded columns.
func (a *SampleAllocation) ColumnNames() []string {
	return columnNames(a.numModels)
}

func columnNames(numModels int) []string {
	names := make([]string, 0, 2*numModels-1)
	names = append(names, "0")
	for i := 1; i < numModels; i++ {
		m := strconv.Itoa(i)
		names = append(names, m+"_1", m+"_2")
	}
	return names
}

// Expanded materializes one 0/1 row per sample.
func (a *SampleAllocation) Expanded() [][]int {
	rows := make([][]int, a.numSamples)
	flat := make([]int, a.numSamples*len(a.columns))
	for r := range rows {
		rows[r] = flat[r*len(a.columns) : (r+1)*len(a.columns)]
	}
	for c, bm := range a.columns {
		it := bm.Iterator()
		for it.HasNext() {
			rows[it.Next()][c] = 1
		}
	}
	return rows
}

func (a *SampleAllocation) checkModel(i int) error {
	if i < 0 || i >= a.numModels {
		return fmt.Errorf("%w: model index %d out of range [0, %d)", model.ErrInvalidInput, i, a.numModels)
	}
	return nil
}

// modelBitmap returns the samples model i is evaluated on.
func (a *SampleAllocation) modelBitmap(i int) *roaring.Bitmap {
	if i == 0 {
		return a.columns[0]
	}
	return roaring.Or(a.columns[2*i-1], a.columns[2*i])
}

// SamplesPerModel counts, per model, the samples it is evaluated on. A sample
// in both "i_1" and "i_2" counts once.
func (a *SampleAllocation) SamplesPerModel() []int {
	out := make([]int, a.numModels)
	for i := range out {
		out[i] = int(a.modelBitmap(i).GetCardinality())
	}
	return out
}

// SampleIndicesForModel returns the ascending sample rows of model i.
func (a *SampleAllocation) SampleIndicesForModel(i int) ([]int, error) {
	if err := a.checkModel(i); err != nil {
		return nil, err
	}
	return toInts(a.modelBitmap(i)), nil
}

func toInts(bm *roaring.Bitmap) []int {
	raw := bm.ToArray()
	out := make([]int, len(raw))
	for j, v := range raw {
		out[j] = int(v)
	}
	return out
}

// SampleSplitForModel returns, over the samples of model i > 0, which belong
// to "i_1" and which to "i_2".
func (a *SampleAllocation) SampleSplitForModel(i int) (first, second []bool, err error) {
	if err := a.checkModel(i); err != nil {
		return nil, nil, err
	}
	if i == 0 {
		return nil, nil, fmt.Errorf("%w: model 0 has no sample split", model.ErrInvalidInput)
	}

	c1, c2 := a.columns[2*i-1], a.columns[2*i]
	rows := roaring.Or(c1, c2)
	n := int(rows.GetCardinality())
	first = make([]bool, n)
	second = make([]bool, n)

	it := rows.Iterator()
	for j := 0; it.HasNext(); j++ {
		r := it.Next()
		first[j] = c1.Contains(r)
		second[j] = c2.Contains(r)
	}
	return first, second, nil
}

// sharedRatio returns shared/(na*nb), zero when nothing is shared.
func sharedRatio(shared, na, nb uint64) float64 {
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(na) / float64(nb)
}

// K0 returns the shared-sample coefficients between model 0 and each
// auxiliary model:
//
//	k0_i = n(0∩i_1)/(n_0 n_i_1) - n(0∩i_2)/(n_0 n_i_2)
func (a *SampleAllocation) K0() ([]float64, error) {
	if a.numModels < 2 {
		return nil, &model.DimensionError{What: "k0 needs auxiliary models", Expected: 2, Actual: a.numModels}
	}
	c0 := a.columns[0]
	n0 := c0.GetCardinality()

	k0 := make([]float64, a.numModels-1)
	for i := range k0 {
		c1, c2 := a.columns[2*i+1], a.columns[2*i+2]
		k0[i] = sharedRatio(c0.AndCardinality(c1), n0, c1.GetCardinality()) -
			sharedRatio(c0.AndCardinality(c2), n0, c2.GetCardinality())
	}
	return k0, nil
}

// K returns the pairwise shared-sample coefficients between auxiliary models:
//
//	k_ij = n(i1∩j1)/(n_i1 n_j1) - n(i1∩j2)/(n_i1 n_j2)
//	     - n(i2∩j1)/(n_i2 n_j1) + n(i2∩j2)/(n_i2 n_j2)
func (a *SampleAllocation) K() (*mat.Dense, error) {
	if a.numModels < 2 {
		return nil, &model.DimensionError{What: "k needs auxiliary models", Expected: 2, Actual: a.numModels}
	}
	m := a.numModels - 1
	n := make([]uint64, len(a.columns))
	for c, bm := range a.columns {
		n[c] = bm.GetCardinality()
	}
	term := func(x, y int) float64 {
		return sharedRatio(a.columns[x].AndCardinality(a.columns[y]), n[x], n[y])
	}

	k := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		i1, i2 := 2*i+1, 2*i+2
		for j := i; j < m; j++ {
			j1, j2 := 2*j+1, 2*j+2
			v := term(i1, j1) - term(i1, j2) - term(i2, j1) + term(i2, j2)
			k.Set(i, j, v)
			k.Set(j, i, v)
		}
	}
	return k, nil
}
