// Package prommetrics exports mxmc operation metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/mxmc"
)

// Collector implements mxmc.MetricsCollector.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	optimizes   *prometheus.CounterVec
	sweepPoints prometheus.Counter
	persists    *prometheus.CounterVec
}

var _ mxmc.MetricsCollector = (*Collector)(nil)

// New creates a collector and registers it with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mxmc_operation_latency_seconds",
			Help:    "Latency of optimize, sweep and persist operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		optimizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mxmc_optimizations_total",
			Help: "Optimizations by method and outcome",
		}, []string{"method", "outcome"}),
		sweepPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mxmc_sweep_points_total",
			Help: "Target costs processed by sweeps",
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mxmc_persists_total",
			Help: "Allocation saves",
		}, []string{"status"}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.optimizes, c.sweepPoints, c.persists} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) RecordOptimize(method string, d time.Duration, feasible bool, err error) {
	c.opLatency.WithLabelValues("optimize", status(err)).Observe(d.Seconds())
	outcome := "feasible"
	switch {
	case err != nil:
		outcome = "error"
	case !feasible:
		outcome = "infeasible"
	}
	c.optimizes.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordSweep(points int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("sweep", status(err)).Observe(d.Seconds())
	c.sweepPoints.Add(float64(points))
}

func (c *Collector) RecordPersist(d time.Duration, err error) {
	c.opLatency.WithLabelValues("persist", status(err)).Observe(d.Seconds())
	c.persists.WithLabelValues(status(err)).Inc()
}
