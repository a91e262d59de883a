package control

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/backend"
	"github.com/momentics/lfbuddy/buddy"
)

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry()
	require.True(t, mr.Updated().IsZero())

	mr.Set("workers", 4)
	mr.PublishStats("stress.", api.Stats{Allocs: 10, Frees: 7, AllocPages: 3})

	snap := mr.GetSnapshot()
	require.Equal(t, 4, snap["workers"])
	require.Equal(t, uint64(10), snap["stress.allocs"])
	require.Equal(t, uint64(7), snap["stress.frees"])
	require.Equal(t, uint64(3), snap["stress.alloc_pages"])
	require.False(t, mr.Updated().IsZero())

	// Snapshots are copies.
	snap["workers"] = 0
	require.Equal(t, 4, mr.GetSnapshot()["workers"])
}

func TestAllocatorProbes(t *testing.T) {
	a, err := buddy.New(0, 64, backend.Heap(), buddy.WithCPUs(1))
	require.NoError(t, err)

	dp := NewDebugProbes()
	RegisterAllocatorProbes(dp, a)
	RegisterPlatformProbes(dp)
	require.Contains(t, dp.Names(), "alloc.stats")
	require.Contains(t, dp.Names(), "platform.cpus")

	_, err = a.Alloc(3)
	require.NoError(t, err)

	state := dp.DumpState()
	require.Equal(t, 56, state["alloc.free_pages"])
	require.Equal(t, []int{0, 0, 0, 1, 1, 1, 0}, state["alloc.free_blocks"])
	require.Equal(t, uint64(1), state["alloc.stats"].(map[string]any)["allocs"])
	require.Equal(t, 64, state["alloc.geometry"].(api.Geometry).PageCount)
	require.Positive(t, state["platform.cpus"])
}
