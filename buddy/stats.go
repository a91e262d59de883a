// File: buddy/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buddy

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/lfbuddy/api"
)

// cpuStats are counters owned by one CPU slot, padded so that hot counters of
// neighbouring CPUs never share a cache line.
type cpuStats struct {
	allocs     atomic.Uint64
	frees      atomic.Uint64
	splits     atomic.Uint64
	merges     atomic.Uint64
	steals     atomic.Uint64
	stalePops  atomic.Uint64
	oom        atomic.Uint64
	allocPages atomic.Int64
	_          cpu.CacheLinePad
}

// Stats sums the per-CPU counters. Under concurrent traffic the result is a
// blend of slightly different instants.
func (a *Allocator) Stats() api.Stats {
	var s api.Stats
	var pages int64
	for i := range a.stats {
		c := &a.stats[i]
		s.Allocs += c.allocs.Load()
		s.Frees += c.frees.Load()
		s.Splits += c.splits.Load()
		s.Merges += c.merges.Load()
		s.Steals += c.steals.Load()
		s.StalePops += c.stalePops.Load()
		s.OutOfMem += c.oom.Load()
		pages += c.allocPages.Load()
	}
	if pages > 0 {
		s.AllocPages = uint64(pages)
	}
	return s
}
