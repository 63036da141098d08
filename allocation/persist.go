package allocation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/blobstore"
	"github.com/hupe1980/mxmc/internal/container"
	"github.com/hupe1980/mxmc/internal/mmap"
	"github.com/hupe1980/mxmc/model"
	"github.com/hupe1980/mxmc/resource"
)

const (
	attrMethod = "Method"
	attrKind   = "Kind"

	groupCompressed = "Compressed_Allocation"
	dsCompressed    = "compressed_allocation"
	groupExpanded   = "Expanded_Allocation"
	dsExpanded      = "expanded_allocation"
	groupSamples    = "Samples"
	dsSamples       = "samples"
	groupInputNames = "Input_Names"
)

func modelGroup(i int) string   { return "Samples_Model_" + strconv.Itoa(i) }
func modelDataset(i int) string { return "samples_model_" + strconv.Itoa(i) }

// WriteTo writes the allocation without compression.
func (a *SampleAllocation) WriteTo(w io.Writer) (int64, error) {
	return a.Encode(w)
}

// Encode writes the allocation container to w.
func (a *SampleAllocation) Encode(w io.Writer, opts ...SaveOption) (int64, error) {
	o := applySaveOptions(opts)
	f, err := a.toContainer()
	if err != nil {
		return 0, err
	}
	if o.controller != nil {
		w = resource.NewRateLimitedWriter(context.Background(), w, o.controller)
	}
	return container.Write(w, f, container.WithCompression(o.compression))
}

// SaveFile writes the allocation to path.
func (a *SampleAllocation) SaveFile(path string, opts ...SaveOption) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err = a.Encode(f, opts...); err != nil {
		return err
	}
	return f.Sync()
}

// Save encodes the allocation and stores it under name.
func (a *SampleAllocation) Save(ctx context.Context, store blobstore.BlobStore, name string, opts ...SaveOption) error {
	o := applySaveOptions(opts)
	f, err := a.toContainer()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if o.controller != nil {
		w = resource.NewRateLimitedWriter(ctx, &buf, o.controller)
	}
	if _, err := container.Write(w, f, container.WithCompression(o.compression)); err != nil {
		return err
	}
	return store.Put(ctx, name, buf.Bytes())
}

// Read parses an allocation container.
func Read(r io.Reader) (*SampleAllocation, error) {
	f, err := container.Read(r)
	if err != nil {
		return nil, err
	}
	return fromContainer(f)
}

// ReadFile maps path and decodes the allocation from it.
func ReadFile(path string) (*SampleAllocation, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	_ = m.Sequential()
	f, err := container.Decode(m.Bytes())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fromContainer(f)
}

// Load reads the allocation stored under name.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts ...SaveOption) (*SampleAllocation, error) {
	o := applySaveOptions(opts)
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	var f *container.File
	if o.controller != nil {
		r := resource.NewRateLimitedReader(ctx, io.NewSectionReader(blob, 0, blob.Size()), o.controller)
		f, err = container.Read(r)
	} else {
		var data []byte
		if data, err = blobstore.ReadAll(blob); err == nil {
			f, err = container.Decode(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return fromContainer(f)
}

func (a *SampleAllocation) toContainer() (*container.File, error) {
	f := container.New()
	f.SetAttr(attrMethod, a.method)
	f.SetAttr(attrKind, a.kind.String())

	width := 2 * a.numModels
	flat := make([]int64, 0, len(a.compressed)*width)
	for _, row := range a.compressed {
		for _, v := range row {
			flat = append(flat, int64(v))
		}
	}
	if err := addInts(f, groupCompressed, dsCompressed, len(a.compressed), width, flat); err != nil {
		return nil, err
	}

	expanded := a.Expanded()
	flat = make([]int64, 0, len(expanded)*len(a.columns))
	for _, row := range expanded {
		for _, v := range row {
			flat = append(flat, int64(v))
		}
	}
	if err := addInts(f, groupExpanded, dsExpanded, len(expanded), len(a.columns), flat); err != nil {
		return nil, err
	}

	rows, cols, data := denseData(a.Samples())
	if err := addFloats(f, groupSamples, dsSamples, rows, cols, data); err != nil {
		return nil, err
	}

	if _, err := f.CreateGroup(groupInputNames); err != nil {
		return nil, err
	}

	for i := 0; i < a.numModels; i++ {
		g, err := f.CreateGroup(modelGroup(i))
		if err != nil {
			return nil, err
		}
		if !a.HasSamples() {
			continue
		}
		s, err := a.SamplesForModel(i)
		if err != nil {
			return nil, err
		}
		rows, cols, data := denseData(s)
		if _, err := g.CreateFloats(modelDataset(i), rows, cols, data); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func addInts(f *container.File, group, name string, rows, cols int, data []int64) error {
	g, err := f.CreateGroup(group)
	if err != nil {
		return err
	}
	_, err = g.CreateInts(name, rows, cols, data)
	return err
}

func addFloats(f *container.File, group, name string, rows, cols int, data []float64) error {
	g, err := f.CreateGroup(group)
	if err != nil {
		return err
	}
	_, err = g.CreateFloats(name, rows, cols, data)
	return err
}

func denseData(d *mat.Dense) (rows, cols int, data []float64) {
	if d == nil || d.IsEmpty() {
		return 0, 0, nil
	}
	rows, cols = d.Dims()
	data = make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		data = append(data, d.RawRowView(r)...)
	}
	return rows, cols, data
}

// fromContainer loads compact, expanded, samples and method as stored.
// Only the shapes needed to index the expanded columns are checked.
func fromContainer(f *container.File) (*SampleAllocation, error) {
	method, ok := f.Attr(attrMethod)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s attribute", model.ErrMalformedAllocation, attrMethod)
	}

	cds, err := f.Lookup(groupCompressed + "/" + dsCompressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedAllocation, err)
	}
	crows, ccols := cds.Dims()
	cvals := cds.Ints()
	compressed := make([][]int, crows)
	for r := range compressed {
		compressed[r] = make([]int, ccols)
		for c := range compressed[r] {
			compressed[r][c] = int(cvals[r*ccols+c])
		}
	}
	numModels, err := modelsFromWidth(compressed)
	if err != nil {
		return nil, err
	}

	eds, err := f.Lookup(groupExpanded + "/" + dsExpanded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedAllocation, err)
	}
	erows, ecols := eds.Dims()
	if erows > 0 && ecols != 2*numModels-1 {
		return nil, fmt.Errorf("%w: expanded allocation has %d columns, want %d", model.ErrMalformedAllocation, ecols, 2*numModels-1)
	}

	a := &SampleAllocation{
		compressed: compressed,
		numModels:  numModels,
		numSamples: erows,
		method:     method,
		kind:       model.KindForMethod(method),
		columns:    newColumns(numModels),
	}
	if s, ok := f.Attr(attrKind); ok {
		if kind, err := model.ParseKind(s); err == nil && kind != model.KindUnknown {
			a.kind = kind
		}
	}

	evals := eds.Ints()
	for r := 0; r < erows; r++ {
		for c := 0; c < ecols; c++ {
			if evals[r*ecols+c] != 0 {
				a.columns[c].Add(uint32(r))
			}
		}
	}

	if sds, err := f.Lookup(groupSamples + "/" + dsSamples); err == nil {
		rows, cols := sds.Dims()
		if rows > 0 && cols > 0 {
			a.samples = mat.NewDense(rows, cols, sds.Floats())
		}
	} else if !errors.Is(err, container.ErrNotFound) {
		return nil, err
	}
	return a, nil
}
