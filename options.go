package mxmc

import (
	"log/slog"

	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/blobstore"
	"github.com/hupe1980/mxmc/catalog"
	"github.com/hupe1980/mxmc/optimizer"
	"github.com/hupe1980/mxmc/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
	maxWorkers       int64
	ioLimit          int64
	store            blobstore.BlobStore
	catalog          catalog.Catalog
	compression      allocation.Compression
	solverSettings   *optimizer.SolverSettings
	constraints      optimizer.ConstraintGenerator
}

// Option configures a Study.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mxmc.BasicMetricsCollector{}
//	study, _ := mxmc.NewStudy("beam", mxmc.MethodACVMF, problem, mxmc.WithMetricsCollector(metrics))
//	// ... run sweeps ...
//	stats := metrics.GetStats()
//	fmt.Printf("Optimizations: %d, Avg latency: %dns\n", stats.OptimizeCount, stats.OptimizeAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := mxmc.NewJSONLogger(slog.LevelInfo)
//	study, _ := mxmc.NewStudy("beam", mxmc.MethodACVMF, problem, mxmc.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares a controller between studies. It takes
// precedence over WithMaxWorkers and WithIOLimit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMaxWorkers caps the number of concurrent optimizations in a sweep.
// Defaults to GOMAXPROCS.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		o.maxWorkers = int64(n)
	}
}

// WithIOLimit caps persistence throughput in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithBlobStore persists every feasible allocation to store.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCatalog records every result in c.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithCompression selects the compression of persisted allocations.
func WithCompression(c allocation.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithSolverSettings overrides the ACV solver limits.
func WithSolverSettings(s optimizer.SolverSettings) Option {
	return func(o *options) {
		o.solverSettings = &s
	}
}

// WithConstraints replaces the default ACV constraints.
func WithConstraints(g optimizer.ConstraintGenerator) Option {
	return func(o *options) {
		o.constraints = g
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      allocation.CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// optimizerOptions maps study options onto optimizer options.
func (o options) optimizerOptions() []optimizer.Option {
	opts := []optimizer.Option{optimizer.WithLogger(o.logger.Logger)}
	if o.solverSettings != nil {
		opts = append(opts, optimizer.WithSolverSettings(*o.solverSettings))
	}
	if o.constraints != nil {
		opts = append(opts, optimizer.WithConstraints(o.constraints))
	}
	return opts
}
