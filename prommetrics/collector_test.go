package prommetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mxmc"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordOptimize("ACVMF", time.Millisecond, true, nil)
	c.RecordOptimize("ACVMF", time.Millisecond, false, nil)
	c.RecordOptimize("ACVMF", time.Millisecond, false, errors.New("boom"))
	c.RecordSweep(3, time.Second, nil)
	c.RecordPersist(time.Millisecond, nil)

	assert.Equal(t, 1.0, value(t, c.optimizes.WithLabelValues("ACVMF", "feasible")))
	assert.Equal(t, 1.0, value(t, c.optimizes.WithLabelValues("ACVMF", "infeasible")))
	assert.Equal(t, 1.0, value(t, c.optimizes.WithLabelValues("ACVMF", "error")))
	assert.Equal(t, 3.0, value(t, c.sweepPoints))
	assert.Equal(t, 1.0, value(t, c.persists.WithLabelValues("success")))

	// Registering twice fails.
	_, err = New(reg)
	assert.Error(t, err)
}

func TestCollectorWithStudy(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	study, err := mxmc.NewStudy("levels", mxmc.MethodMLMC, mxmc.Problem{
		Costs:          []float64{1, 3},
		LevelVariances: []float64{4, 1},
	}, mxmc.WithMetricsCollector(c))
	require.NoError(t, err)

	_, err = study.Sweep(context.Background(), []float64{2, 8, 16})
	require.NoError(t, err)

	assert.Equal(t, 2.0, value(t, c.optimizes.WithLabelValues(mxmc.MethodMLMC, "feasible")))
	assert.Equal(t, 1.0, value(t, c.optimizes.WithLabelValues(mxmc.MethodMLMC, "infeasible")))
	assert.Equal(t, 3.0, value(t, c.sweepPoints))
}
