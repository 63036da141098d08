package mxmc

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/catalog"
	"github.com/hupe1980/mxmc/estimator"
	"github.com/hupe1980/mxmc/model"
	"github.com/hupe1980/mxmc/optimizer"
	"github.com/hupe1980/mxmc/resource"
)

// Method tags.
const (
	MethodACVIS = model.MethodACVIS
	MethodACVMF = model.MethodACVMF
	MethodMLMC  = model.MethodMLMC
)

// Result is the outcome of one optimization.
type Result = optimizer.Result

// Problem describes the models of a study.
type Problem struct {
	// Costs holds the evaluation cost per model, reference model first.
	Costs []float64
	// Covariance of the model outputs. Required for ACV methods.
	Covariance mat.Symmetric
	// LevelVariances feeds MLMC directly. When nil, MLMC derives them from
	// Covariance.
	LevelVariances []float64
}

// Methods returns the supported method tags.
func Methods() []string {
	return []string{MethodACVIS, MethodACVMF, MethodMLMC}
}

// NewOptimizer builds the optimizer for method.
func NewOptimizer(method string, p Problem, opts ...optimizer.Option) (optimizer.Optimizer, error) {
	switch strings.ToUpper(method) {
	case MethodACVIS:
		o, err := optimizer.NewACVIS(p.Costs, p.Covariance, opts...)
		if err != nil {
			return nil, err
		}
		return o, nil
	case MethodACVMF:
		o, err := optimizer.NewACVMF(p.Costs, p.Covariance, opts...)
		if err != nil {
			return nil, err
		}
		return o, nil
	case MethodMLMC:
		var (
			o   *optimizer.MLMC
			err error
		)
		switch {
		case p.LevelVariances != nil:
			o, err = optimizer.NewMLMC(p.Costs, p.LevelVariances, opts...)
		case p.Covariance != nil:
			o, err = optimizer.NewMLMCFromCovariance(p.Costs, p.Covariance, opts...)
		default:
			err = fmt.Errorf("%w: MLMC needs level variances or a covariance", ErrInvalidInput)
		}
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Study runs optimizations of one problem with one method and optionally
// persists and indexes the results.
//
// A Study is safe for concurrent use.
type Study struct {
	name       string
	method     string
	problem    Problem
	opt        optimizer.Optimizer
	opts       options
	logger     *Logger
	controller *resource.Controller
}

// NewStudy validates the problem and returns a study.
func NewStudy(name, method string, p Problem, optFns ...Option) (*Study, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: study name is required", ErrInvalidInput)
	}
	o := applyOptions(optFns)
	method = strings.ToUpper(method)
	logger := o.logger.WithStudy(name).WithMethod(method)
	o.logger = logger

	opt, err := NewOptimizer(method, p, o.optimizerOptions()...)
	if err != nil {
		return nil, err
	}

	controller := o.controller
	if controller == nil {
		workers := o.maxWorkers
		if workers <= 0 {
			workers = int64(runtime.GOMAXPROCS(0))
		}
		controller = resource.NewController(resource.Config{
			MaxWorkers:         workers,
			IOLimitBytesPerSec: o.ioLimit,
		})
	}

	return &Study{
		name:       name,
		method:     method,
		problem:    p,
		opt:        opt,
		opts:       o,
		logger:     logger,
		controller: controller,
	}, nil
}

// Name returns the study name.
func (s *Study) Name() string { return s.name }

// Method returns the method tag.
func (s *Study) Method() string { return s.method }

// Optimizer returns the underlying optimizer.
func (s *Study) Optimizer() optimizer.Optimizer { return s.opt }

// BlobName is the blob name of the allocation for targetCost.
func (s *Study) BlobName(targetCost float64) string {
	return s.name + "/" + strings.ToLower(s.method) + "-" + strconv.FormatFloat(targetCost, 'g', -1, 64) + ".mxcf"
}

// Persists reports whether feasible allocations are written to a blob store.
func (s *Study) Persists() bool { return s.opts.store != nil }

// Optimize runs one optimization. With a blob store the allocation is
// persisted; with a catalog the result is recorded.
func (s *Study) Optimize(ctx context.Context, targetCost float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.optimize(ctx, targetCost)
	return res, translateError(err)
}

func (s *Study) optimize(ctx context.Context, targetCost float64) (*Result, error) {
	start := time.Now()
	res, err := s.opt.Optimize(targetCost)
	s.opts.metricsCollector.RecordOptimize(s.method, time.Since(start), res.Valid(), err)
	if err != nil {
		s.logger.LogOptimize(ctx, targetCost, 0, 0, err)
		return nil, &OptimizeError{Method: s.method, TargetCost: targetCost, cause: err}
	}
	s.logger.LogOptimize(ctx, targetCost, res.Cost, res.Variance, nil)

	entry := catalog.Entry{
		Study:      s.name,
		TargetCost: targetCost,
		Method:     s.method,
		Cost:       res.Cost,
		Variance:   res.Variance,
	}
	if s.opts.store != nil && res.Valid() {
		name := s.BlobName(targetCost)
		if err := s.persist(ctx, name, res.Allocation); err != nil {
			return nil, err
		}
		entry.Blob = name
	}
	if s.opts.catalog != nil {
		if err := s.opts.catalog.Put(ctx, entry); err != nil {
			return nil, fmt.Errorf("record %s: %w", s.BlobName(targetCost), err)
		}
	}
	return res, nil
}

func (s *Study) persist(ctx context.Context, name string, alloc *allocation.SampleAllocation) error {
	start := time.Now()
	err := alloc.Save(ctx, s.opts.store, name,
		allocation.WithCompression(s.opts.compression),
		allocation.WithController(s.controller),
	)
	s.opts.metricsCollector.RecordPersist(time.Since(start), err)
	s.logger.LogPersist(ctx, name, err)
	return err
}

// Sweep optimizes every target cost concurrently, bounded by the worker
// limit. Results are in input order. The first error cancels the sweep.
func (s *Study) Sweep(ctx context.Context, targetCosts []float64) ([]*Result, error) {
	start := time.Now()
	results := make([]*Result, len(targetCosts))

	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error
	for i, tc := range targetCosts {
		if err := s.controller.AcquireWorker(gctx); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer s.controller.ReleaseWorker()
			res, err := s.optimize(gctx, tc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = acquireErr
	}

	infeasible := 0
	for _, r := range results {
		if r != nil && !r.Valid() {
			infeasible++
		}
	}
	duration := time.Since(start)
	s.opts.metricsCollector.RecordSweep(len(targetCosts), duration, err)
	s.logger.LogSweep(ctx, len(targetCosts), infeasible, duration, err)

	if err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

// Entries returns the catalog entries of the study by ascending target
// cost. Without a catalog it returns nil.
func (s *Study) Entries(ctx context.Context) ([]catalog.Entry, error) {
	if s.opts.catalog == nil {
		return nil, nil
	}
	entries, err := s.opts.catalog.List(ctx, s.name)
	return entries, translateError(err)
}

// LoadAllocation reads the persisted allocation for targetCost. The blob
// name comes from the catalog when one is configured.
func (s *Study) LoadAllocation(ctx context.Context, targetCost float64) (*allocation.SampleAllocation, error) {
	if s.opts.store == nil {
		return nil, ErrNoBlobStore
	}
	name := s.BlobName(targetCost)
	if s.opts.catalog != nil {
		e, err := s.opts.catalog.Get(ctx, s.name, targetCost)
		if err != nil {
			return nil, translateError(err)
		}
		if e.Blob == "" {
			return nil, fmt.Errorf("%w: no allocation stored for target cost %g", ErrNotFound, targetCost)
		}
		name = e.Blob
	}
	alloc, err := allocation.Load(ctx, s.opts.store, name, allocation.WithController(s.controller))
	return alloc, translateError(err)
}

// Estimator returns the estimator for alloc using the study covariance.
// MLMC allocations are in level order, so the covariance is permuted to
// match.
func (s *Study) Estimator(alloc *allocation.SampleAllocation) (estimator.Estimator, error) {
	if alloc == nil {
		return nil, fmt.Errorf("%w: nil allocation", ErrInvalidInput)
	}
	if s.problem.Covariance == nil {
		return nil, fmt.Errorf("%w: estimator needs a covariance", ErrInvalidInput)
	}
	cov := s.problem.Covariance
	if ml, ok := s.opt.(*optimizer.MLMC); ok && alloc.Kind() == model.KindMLMC && cov.SymmetricDim() == ml.NumModels() {
		cov = permute(cov, ml.ModelOrder())
	}
	return estimator.New(alloc, cov)
}

// permute returns P cov P^T where row l of the result is row order[l].
func permute(cov mat.Symmetric, order []int) *mat.SymDense {
	n := len(order)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, cov.At(order[i], order[j]))
		}
	}
	return out
}

// Infeasible reports whether targetCost is below the cost of evaluating
// every model once.
func (s *Study) Infeasible(targetCost float64) bool {
	total := 0.0
	for _, c := range s.problem.Costs {
		total += c
	}
	return targetCost < total || math.IsNaN(targetCost)
}
