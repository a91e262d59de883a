// File: buddy/inspect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Quiescent introspection. None of these methods synchronise with Alloc or
// Free; under concurrent traffic their results are approximate and Check may
// report transient states as errors.

package buddy

import (
	"sort"

	"github.com/momentics/lfbuddy/api"
)

// Check verifies the tree invariants: active blocks tile [0, pages) with no
// overlap, no node is mid-merge, no two buddies are both free, and every free
// block is threaded into exactly one free list of its order.
func (a *Allocator) Check() error {
	covered := 0
	if err := a.checkNode(1, &covered); err != nil {
		return err
	}
	if covered != a.pages {
		return a.inconsistent(1, "active blocks cover %d of %d pages", covered, a.pages)
	}

	// Nodes reachable only through a non-Split parent would be invisible to
	// the walk above.
	for i := 2; i < a.states.Len(); i++ {
		n := uint32(i)
		if a.states.Load(n) != api.StateUnused && a.states.Load(n>>1) != api.StateSplit {
			return a.inconsistent(n, "%s under %s parent", a.states.Load(n), a.states.Load(n>>1))
		}
	}
	return a.checkLists()
}

func (a *Allocator) checkNode(n uint32, covered *int) error {
	order := a.orderOf(n)
	start := a.offsetOf(n)
	end := start + 1<<uint(order)

	switch s := a.states.Load(n); s {
	case api.StateUnused:
		if start < a.pages {
			return a.inconsistent(n, "unused node overlaps managed pages")
		}
	case api.StateSplit:
		if order == 0 || start >= a.pages {
			return a.inconsistent(n, "split node cannot hold blocks")
		}
		if err := a.checkNode(n<<1, covered); err != nil {
			return err
		}
		return a.checkNode(n<<1|1, covered)
	case api.StateFree, api.StateAllocated:
		if end > a.pages || order > a.maxOrder {
			return a.inconsistent(n, "%s block exceeds managed range", s)
		}
		if s == api.StateFree {
			if !a.states.Linked(n) {
				return a.inconsistent(n, "free block not on a free list")
			}
			if n > 1 && a.states.Load(n^1) == api.StateFree {
				return a.inconsistent(n, "free buddies left unmerged")
			}
		}
		*covered += end - start
	default:
		return a.inconsistent(n, "unexpected state %s", s)
	}
	return nil
}

// checkLists walks every free list. Entries for nodes that are no longer free
// are allowed; each free node must appear exactly once, on a list of its
// own order.
func (a *Allocator) checkLists() error {
	seen := make([]bool, a.states.Len())
	limit := a.states.Len()
	var bad error
	for c := 0; c < a.ncpu; c++ {
		for k := 0; k <= a.maxOrder; k++ {
			ok := a.list(c, k).Walk(a.links, limit, func(n uint32) bool {
				switch {
				case int(n) >= len(seen):
					bad = a.inconsistent(1, "list entry %d outside the tree", n)
				case seen[n]:
					bad = a.inconsistent(n, "node threaded twice")
				case a.orderOf(n) != k:
					bad = a.inconsistent(n, "node on the order %d list", k)
				case !a.states.Linked(n):
					bad = a.inconsistent(n, "list entry without linked flag")
				}
				if bad != nil {
					return false
				}
				seen[n] = true
				return true
			})
			if bad != nil {
				return bad
			}
			if !ok {
				return a.inconsistent(1, "cycle in free list cpu=%d order=%d", c, k)
			}
		}
	}
	for i := 1; i < len(seen); i++ {
		n := uint32(i)
		if a.states.Load(n) == api.StateFree && !seen[n] {
			return a.inconsistent(n, "free block missing from every list")
		}
	}
	return nil
}

func (a *Allocator) inconsistent(n uint32, format string, args ...any) error {
	err := api.Errorf(api.ErrCodeInternal, "buddy: "+format, args...).
		WithContext("node", n).
		WithContext("order", a.orderOf(n)).
		WithContext("offset", a.offsetOf(n))
	a.log.Warn("buddy: consistency check failed", "error", err)
	return err
}

// FreeBlocks returns the number of free blocks per order, indexed by order.
func (a *Allocator) FreeBlocks() []int {
	out := make([]int, a.maxOrder+1)
	for i := 1; i < a.states.Len(); i++ {
		n := uint32(i)
		if a.states.Load(n) == api.StateFree {
			if k := a.orderOf(n); k <= a.maxOrder {
				out[k]++
			}
		}
	}
	return out
}

// FreePages returns the number of pages held by free blocks.
func (a *Allocator) FreePages() int {
	total := 0
	for k, n := range a.FreeBlocks() {
		total += n << uint(k)
	}
	return total
}

// Snapshot returns the free blocks ordered by address.
func (a *Allocator) Snapshot() []api.Block {
	return a.Blocks(api.StateFree)
}

// Blocks returns the nodes currently in state s, as blocks ordered by address.
func (a *Allocator) Blocks(s api.BlockState) []api.Block {
	var out []api.Block
	for i := 1; i < a.states.Len(); i++ {
		n := uint32(i)
		if a.states.Load(n) == s {
			out = append(out, a.block(n, a.orderOf(n)))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Addr != out[j].Addr {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Order > out[j].Order
	})
	return out
}
