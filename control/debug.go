// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for allocator inspection.

package control

import (
	"sort"
	"sync"

	"github.com/momentics/lfbuddy/api"
)

var _ api.Debug = (*DebugProbes)(nil)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names returns the registered probe names in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// AllocatorSource is what the allocator probes read from.
type AllocatorSource interface {
	Stats() api.Stats
	Geometry() api.Geometry
	FreeBlocks() []int
}

// RegisterAllocatorProbes exposes geometry, counters and the free-block
// histogram of src under the "alloc." prefix.
func RegisterAllocatorProbes(dp *DebugProbes, src AllocatorSource) {
	dp.RegisterProbe("alloc.geometry", func() any {
		return src.Geometry()
	})
	dp.RegisterProbe("alloc.stats", func() any {
		return statsMap(src.Stats())
	})
	dp.RegisterProbe("alloc.free_blocks", func() any {
		return src.FreeBlocks()
	})
	dp.RegisterProbe("alloc.free_pages", func() any {
		total := 0
		for k, n := range src.FreeBlocks() {
			total += n << uint(k)
		}
		return total
	})
}
