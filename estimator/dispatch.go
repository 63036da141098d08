package estimator

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/model"
)

// Estimator combines per-model outputs into an estimate of the reference
// model mean.
type Estimator interface {
	// Estimate takes, for every model i, the outputs on the samples returned
	// by SampleIndicesForModel(i), in that order.
	Estimate(outputs [][]float64) (float64, error)
	// Variance is the predicted estimator variance.
	Variance() float64
	// Weights are the control variate weights, one per auxiliary model.
	Weights() []float64
}

// Constructor builds an estimator. The covariance has already been checked
// against the allocation's model count.
type Constructor func(alloc *allocation.SampleAllocation, cov *mat.SymDense) (Estimator, error)

// Dispatcher maps allocation kinds to estimator constructors.
type Dispatcher struct {
	mu    sync.RWMutex
	ctors map[model.Kind]Constructor
}

// NewDispatcher returns a dispatcher with the built-in estimators.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{ctors: make(map[model.Kind]Constructor)}
	d.Register(model.KindACV, NewACV)
	d.Register(model.KindMLMC, NewMLMC)
	return d
}

// Register adds or replaces the constructor for kind.
func (d *Dispatcher) Register(kind model.Kind, ctor Constructor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctors[kind] = ctor
}

// Lookup returns the constructor registered for kind.
func (d *Dispatcher) Lookup(kind model.Kind) (Constructor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ctor, ok := d.ctors[kind]
	if !ok || ctor == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedAllocationType, kind)
	}
	return ctor, nil
}

// New validates cov against alloc and builds the estimator for alloc's kind.
func (d *Dispatcher) New(alloc *allocation.SampleAllocation, cov mat.Matrix) (Estimator, error) {
	if alloc == nil {
		return nil, fmt.Errorf("%w: nil allocation", model.ErrInvalidInput)
	}
	if cov == nil {
		return nil, fmt.Errorf("%w: nil covariance", model.ErrInvalidInput)
	}
	r, c := cov.Dims()
	if r != c {
		return nil, &model.DimensionError{What: "covariance must be square", Expected: r, Actual: c}
	}
	if r != alloc.NumModels() {
		return nil, &model.DimensionError{What: "covariance size vs model count", Expected: alloc.NumModels(), Actual: r}
	}

	ctor, err := d.Lookup(alloc.Kind())
	if err != nil {
		return nil, err
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, cov.At(i, j))
		}
	}
	return ctor(alloc, sym)
}

var defaultDispatcher = NewDispatcher()

// Register adds a constructor to the default dispatcher.
func Register(kind model.Kind, ctor Constructor) {
	defaultDispatcher.Register(kind, ctor)
}

// New builds an estimator with the default dispatcher.
func New(alloc *allocation.SampleAllocation, cov mat.Matrix) (Estimator, error) {
	return defaultDispatcher.New(alloc, cov)
}
