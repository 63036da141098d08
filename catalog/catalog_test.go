package catalog

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()

	require.NoError(t, c.Put(ctx, Entry{Study: "a", TargetCost: 100, Method: "ACVMF", Cost: 99, Variance: 0.01, Blob: "a/100"}))
	require.NoError(t, c.Put(ctx, Entry{Study: "a", TargetCost: 10, Method: "ACVMF", Cost: 10, Variance: 0.1}))
	require.NoError(t, c.Put(ctx, Entry{Study: "a", TargetCost: 1, Method: "ACVMF", Variance: math.Inf(1)}))
	require.NoError(t, c.Put(ctx, Entry{Study: "b", TargetCost: 5, Method: "MLMC", Cost: 4, Variance: 1}))

	entries, err := c.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []float64{1, 10, 100}, []float64{entries[0].TargetCost, entries[1].TargetCost, entries[2].TargetCost})
	assert.False(t, entries[0].Valid())

	best, ok := Best(entries)
	require.True(t, ok)
	assert.Equal(t, "a/100", best.Blob)

	e, err := c.Get(ctx, "b", 5)
	require.NoError(t, err)
	assert.Equal(t, "MLMC", e.Method)

	// Replace.
	require.NoError(t, c.Put(ctx, Entry{Study: "b", TargetCost: 5, Method: "MLMC", Cost: 5, Variance: 0.9}))
	e, err = c.Get(ctx, "b", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.Cost)

	require.NoError(t, c.Delete(ctx, "b", 5))
	require.NoError(t, c.Delete(ctx, "b", 5))
	_, err = c.Get(ctx, "b", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err = c.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBestWithoutFeasibleEntries(t *testing.T) {
	_, ok := Best([]Entry{{Variance: math.Inf(1)}})
	assert.False(t, ok)
	_, ok = Best(nil)
	assert.False(t, ok)
}
