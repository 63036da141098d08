package container

import (
	"errors"
	"fmt"
	"strings"
)

// DType is the element type of a dataset.
type DType uint8

const (
	// Int64 datasets hold signed integers.
	Int64 DType = 1
	// Float64 datasets hold IEEE-754 doubles.
	Float64 DType = 2
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

var (
	// ErrNotFound is returned when a group, dataset or attribute is missing.
	ErrNotFound = errors.New("container: not found")
	// ErrExists is returned when creating a group or dataset twice.
	ErrExists = errors.New("container: already exists")
	// ErrShape is returned when data does not match the declared shape.
	ErrShape = errors.New("container: data does not match shape")
	// ErrCorrupt is returned for unreadable files.
	ErrCorrupt = errors.New("container: corrupt file")
)

// File is an in-memory container.
type File struct {
	attrs     map[string]string
	attrOrder []string
	groups    []*Group
}

// New creates an empty container.
func New() *File {
	return &File{attrs: make(map[string]string)}
}

// SetAttr sets a top-level string attribute.
func (f *File) SetAttr(key, value string) {
	if _, ok := f.attrs[key]; !ok {
		f.attrOrder = append(f.attrOrder, key)
	}
	f.attrs[key] = value
}

// Attr returns a top-level attribute.
func (f *File) Attr(key string) (string, bool) {
	v, ok := f.attrs[key]
	return v, ok
}

// CreateGroup adds a new, empty group.
func (f *File) CreateGroup(name string) (*Group, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("container: invalid group name %q", name)
	}
	if f.Group(name) != nil {
		return nil, fmt.Errorf("%w: group %q", ErrExists, name)
	}
	g := &Group{name: name}
	f.groups = append(f.groups, g)
	return g, nil
}

// Group returns the named group or nil.
func (f *File) Group(name string) *Group {
	for _, g := range f.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

// Groups returns the groups in creation order.
func (f *File) Groups() []*Group {
	out := make([]*Group, len(f.groups))
	copy(out, f.groups)
	return out
}

// Lookup resolves a "Group/dataset" path.
func (f *File) Lookup(path string) (*Dataset, error) {
	groupName, dsName, ok := strings.Cut(path, "/")
	if !ok {
		return nil, fmt.Errorf("container: invalid dataset path %q", path)
	}
	g := f.Group(groupName)
	if g == nil {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, groupName)
	}
	ds := g.Dataset(dsName)
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset %q", ErrNotFound, path)
	}
	return ds, nil
}

// Group is a named collection of datasets.
type Group struct {
	name     string
	datasets []*Dataset
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Datasets returns the datasets in creation order.
func (g *Group) Datasets() []*Dataset {
	out := make([]*Dataset, len(g.datasets))
	copy(out, g.datasets)
	return out
}

// Dataset returns the named dataset or nil.
func (g *Group) Dataset(name string) *Dataset {
	for _, ds := range g.datasets {
		if ds.name == name {
			return ds
		}
	}
	return nil
}

// CreateInts adds an int64 dataset. data is row-major with rows*cols entries.
func (g *Group) CreateInts(name string, rows, cols int, data []int64) (*Dataset, error) {
	if err := g.checkNew(name, rows, cols, len(data)); err != nil {
		return nil, err
	}
	ds := &Dataset{name: name, dtype: Int64, rows: rows, cols: cols, ints: append([]int64(nil), data...)}
	g.datasets = append(g.datasets, ds)
	return ds, nil
}

// CreateFloats adds a float64 dataset. data is row-major with rows*cols entries.
func (g *Group) CreateFloats(name string, rows, cols int, data []float64) (*Dataset, error) {
	if err := g.checkNew(name, rows, cols, len(data)); err != nil {
		return nil, err
	}
	ds := &Dataset{name: name, dtype: Float64, rows: rows, cols: cols, floats: append([]float64(nil), data...)}
	g.datasets = append(g.datasets, ds)
	return ds, nil
}

func (g *Group) checkNew(name string, rows, cols, n int) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("container: invalid dataset name %q", name)
	}
	if g.Dataset(name) != nil {
		return fmt.Errorf("%w: dataset %s/%s", ErrExists, g.name, name)
	}
	if rows < 0 || cols < 0 || (cols == 0 && rows > 0) || rows*cols != n {
		return fmt.Errorf("%w: %s/%s is %dx%d with %d values", ErrShape, g.name, name, rows, cols, n)
	}
	return nil
}

// Dataset is a two-dimensional array.
type Dataset struct {
	name   string
	dtype  DType
	rows   int
	cols   int
	ints   []int64
	floats []float64
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// DType returns the element type.
func (d *Dataset) DType() DType { return d.dtype }

// Dims returns the shape.
func (d *Dataset) Dims() (rows, cols int) { return d.rows, d.cols }

// Ints returns the int64 values. Float datasets are converted by truncation.
func (d *Dataset) Ints() []int64 {
	if d.dtype == Int64 {
		return append([]int64(nil), d.ints...)
	}
	out := make([]int64, len(d.floats))
	for i, v := range d.floats {
		out[i] = int64(v)
	}
	return out
}

// Floats returns the float64 values. Int datasets are converted.
func (d *Dataset) Floats() []float64 {
	if d.dtype == Float64 {
		return append([]float64(nil), d.floats...)
	}
	out := make([]float64, len(d.ints))
	for i, v := range d.ints {
		out[i] = float64(v)
	}
	return out
}

func (d *Dataset) len() int {
	if d.dtype == Int64 {
		return len(d.ints)
	}
	return len(d.floats)
}
