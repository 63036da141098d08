package mxmc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// The prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordOptimize is called after each optimization.
	// feasible is false for budgets below the total model cost.
	RecordOptimize(method string, duration time.Duration, feasible bool, err error)

	// RecordSweep is called after each sweep with the number of target
	// costs and the total time taken.
	RecordSweep(points int, duration time.Duration, err error)

	// RecordPersist is called after each allocation save.
	RecordPersist(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOptimize(string, time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordSweep(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordPersist(time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OptimizeCount      atomic.Int64
	OptimizeErrors     atomic.Int64
	OptimizeInfeasible atomic.Int64
	OptimizeTotalNanos atomic.Int64
	SweepCount         atomic.Int64
	SweepPoints        atomic.Int64
	SweepErrors        atomic.Int64
	PersistCount       atomic.Int64
	PersistErrors      atomic.Int64
}

// RecordOptimize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOptimize(_ string, duration time.Duration, feasible bool, err error) {
	b.OptimizeCount.Add(1)
	b.OptimizeTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.OptimizeErrors.Add(1)
	case !feasible:
		b.OptimizeInfeasible.Add(1)
	}
}

// RecordSweep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSweep(points int, _ time.Duration, err error) {
	b.SweepCount.Add(1)
	b.SweepPoints.Add(int64(points))
	if err != nil {
		b.SweepErrors.Add(1)
	}
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(_ time.Duration, err error) {
	b.PersistCount.Add(1)
	if err != nil {
		b.PersistErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OptimizeCount:      b.OptimizeCount.Load(),
		OptimizeErrors:     b.OptimizeErrors.Load(),
		OptimizeInfeasible: b.OptimizeInfeasible.Load(),
		OptimizeAvgNanos:   b.getAvgOptimizeNanos(),
		SweepCount:         b.SweepCount.Load(),
		SweepPoints:        b.SweepPoints.Load(),
		SweepErrors:        b.SweepErrors.Load(),
		PersistCount:       b.PersistCount.Load(),
		PersistErrors:      b.PersistErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgOptimizeNanos() int64 {
	count := b.OptimizeCount.Load()
	if count == 0 {
		return 0
	}
	return b.OptimizeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OptimizeCount      int64
	OptimizeErrors     int64
	OptimizeInfeasible int64
	OptimizeAvgNanos   int64
	SweepCount         int64
	SweepPoints        int64
	SweepErrors        int64
	PersistCount       int64
	PersistErrors      int64
}
