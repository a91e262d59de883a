package buddy

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/backend"
	"github.com/momentics/lfbuddy/cpuid"
)

// shadow tracks page ownership independently of the allocator.
type shadow struct {
	base  uintptr
	shift uint
	pages []atomic.Int32
}

func (s *shadow) claim(b api.Block) bool {
	first := int((b.Addr - s.base) >> s.shift)
	for p := first; p < first+b.Pages(); p++ {
		if !s.pages[p].CompareAndSwap(0, 1) {
			return false
		}
	}
	return true
}

func (s *shadow) drop(b api.Block) {
	first := int((b.Addr - s.base) >> s.shift)
	for p := first; p < first+b.Pages(); p++ {
		s.pages[p].Store(0)
	}
}

func runStress(t *testing.T, a *Allocator, workers, iterations, maxOrder int, cross bool) {
	t.Helper()
	g := a.Geometry()
	sh := &shadow{base: g.Base, shift: 12, pages: make([]atomic.Int32, g.PageCount)}
	var overlaps, failures atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w) + 1))
			var live []api.Block
			for i := 0; i < iterations; i++ {
				if len(live) > 0 && (rng.Intn(2) == 0 || len(live) > 32) {
					j := rng.Intn(len(live))
					b := live[j]
					live[j] = live[len(live)-1]
					live = live[:len(live)-1]
					sh.drop(b)
					cpu := w
					if cross {
						cpu = rng.Intn(workers)
					}
					if err := a.FreeOn(cpu, b); err != nil {
						failures.Add(1)
					}
					continue
				}
				b, err := a.AllocOn(w, rng.Intn(maxOrder+1))
				if err != nil {
					if api.CodeOf(err) != api.ErrCodeOutOfMemory {
						failures.Add(1)
					}
					runtime.Gosched()
					continue
				}
				if !sh.claim(b) {
					overlaps.Add(1)
				}
				live = append(live, b)
			}
			for _, b := range live {
				sh.drop(b)
				if err := a.FreeOn(w, b); err != nil {
					failures.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	require.Zero(t, overlaps.Load(), "pages handed out twice")
	require.Zero(t, failures.Load(), "unexpected errors")
	require.NoError(t, a.Check())
	require.Equal(t, g.PageCount, a.FreePages())
	st := a.Stats()
	require.Equal(t, st.Allocs, st.Frees)
	require.Zero(t, st.AllocPages)
}

func TestConcurrent_LocalFrees(t *testing.T) {
	const workers = 8
	a, err := New(0, 1024, backend.Heap(), WithCPUs(workers))
	require.NoError(t, err)
	runStress(t, a, workers, 5000, 3, false)
	require.Equal(t, []api.Block{{Addr: 0, Order: 10}}, a.Snapshot())
}

func TestConcurrent_CrossFrees(t *testing.T) {
	const workers = 8
	a, err := New(testBase, 1000, backend.Heap(), WithCPUs(4))
	require.NoError(t, err)
	runStress(t, a, workers, 5000, 4, true)

	// 1000 = 512 + 256 + 128 + 64 + 32 + 8
	require.Equal(t, []int{0, 0, 0, 1, 0, 1, 1, 1, 1, 1}, a.FreeBlocks())
}

func TestConcurrent_Contended(t *testing.T) {
	// A tiny range forces constant splitting, merging and stealing.
	a, err := New(0, 16, backend.Heap(), WithCPUs(4))
	require.NoError(t, err)
	runStress(t, a, 8, 5000, 2, true)
	require.Equal(t, []api.Block{{Addr: 0, Order: 4}}, a.Snapshot())
}

func TestConcurrent_DefaultCPUSource(t *testing.T) {
	a, err := New(0, 256, backend.Heap(), WithCPU(cpuid.Proc()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				b, err := a.Alloc(i % 3)
				if err != nil {
					continue
				}
				if err := a.Free(b); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, a.Check())
	require.Equal(t, 256, a.FreePages())
}
