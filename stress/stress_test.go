package stress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/backend"
	"github.com/momentics/lfbuddy/buddy"
)

func newBuddy(t *testing.T, pages int, opts ...buddy.Option) *buddy.Allocator {
	t.Helper()
	a, err := buddy.New(0, pages, backend.Heap(), opts...)
	require.NoError(t, err)
	return a
}

func TestRun_CrossWorkerFrees(t *testing.T) {
	a := newBuddy(t, 512, buddy.WithCPUs(4))

	cfg := DefaultConfig()
	cfg.Workers = 6
	cfg.Iterations = 4000
	cfg.Cross = 0.5
	rep, err := Run(context.Background(), a, cfg)
	require.NoError(t, err)

	require.True(t, rep.Coalesced)
	require.False(t, rep.Cancelled)
	require.Zero(t, rep.Overlaps)
	require.Equal(t, rep.Allocs, rep.Frees)
	require.Positive(t, rep.Handoffs)
	require.Equal(t, rep.Allocs, rep.Stats.Allocs)
	require.Zero(t, rep.Stats.AllocPages)
	require.Equal(t, []api.Block{{Addr: 0, Order: 9}}, a.Snapshot())
}

func TestRun_Exhausting(t *testing.T) {
	// Far more demand than pages: most allocations fail, none overlap.
	a := newBuddy(t, 32, buddy.WithCPUs(2))

	cfg := DefaultConfig()
	cfg.Workers = 8
	cfg.Iterations = 3000
	cfg.MaxOrder = 8
	rep, err := Run(context.Background(), a, cfg)
	require.NoError(t, err)
	require.Positive(t, rep.OutOfMem)
	require.Equal(t, rep.OutOfMem, rep.Stats.OutOfMem)
}

func TestRun_Pinned(t *testing.T) {
	a := newBuddy(t, 256)

	cfg := DefaultConfig()
	cfg.Iterations = 1000
	cfg.Pin = true
	rep, err := Run(context.Background(), a, cfg)
	require.NoError(t, err)
	require.LessOrEqual(t, rep.Pinned, cfg.Workers)
}

func TestRun_Cancelled(t *testing.T) {
	a := newBuddy(t, 64, buddy.WithCPUs(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, a, DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, rep.Cancelled)
	require.True(t, rep.Coalesced)
	require.NoError(t, a.Check())
}

func TestRun_InvalidConfig(t *testing.T) {
	a := newBuddy(t, 64)
	for _, mut := range []func(*Config){
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.Iterations = -1 },
		func(c *Config) { c.MaxOrder = -1 },
		func(c *Config) { c.Cross = 1.5 },
	} {
		cfg := DefaultConfig()
		mut(&cfg)
		_, err := Run(context.Background(), a, cfg)
		require.ErrorIs(t, err, api.ErrInvalidArgument)
	}
}

// brokenAllocator hands the same page to every caller.
type brokenAllocator struct{}

func (brokenAllocator) Alloc(int) (api.Block, error) { return api.Block{}, nil }
func (brokenAllocator) AllocOn(int, int) (api.Block, error) {
	return api.Block{}, nil
}
func (brokenAllocator) Free(api.Block) error        { return nil }
func (brokenAllocator) FreeOn(int, api.Block) error { return nil }
func (brokenAllocator) Stats() api.Stats            { return api.Stats{} }
func (brokenAllocator) Check() error                { return nil }
func (brokenAllocator) FreeBlocks() []int           { return []int{1} }
func (brokenAllocator) Geometry() api.Geometry {
	return api.Geometry{PageSize: api.DefaultPageSize, PageCount: 1, CPUs: 1}
}

func TestRun_DetectsOverlap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.Iterations = 200
	_, err := Run(context.Background(), brokenAllocator{}, cfg)
	require.ErrorIs(t, err, ErrOverlap)
}

func TestShadow(t *testing.T) {
	s := newShadow(api.Geometry{Base: 0x10000, PageSize: 4096, PageCount: 8})
	b := api.Block{Addr: 0x10000 + 4*4096, Order: 2}

	require.True(t, s.claim(b))
	require.Equal(t, 4, s.count())
	require.False(t, s.claim(api.Block{Addr: 0x10000 + 6*4096, Order: 1}))
	s.drop(b)
	require.Zero(t, s.count())
	require.False(t, s.claim(api.Block{Addr: 0x10000 + 8*4096, Order: 0}), "beyond the range")
}
