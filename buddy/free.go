// File: buddy/free.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Free path: claim the buddy and coalesce upwards, otherwise publish locally.

package buddy

import (
	"github.com/momentics/lfbuddy/api"
)

// Free returns a block obtained from Alloc. Handles that cannot belong to
// this allocator fail with api.ErrForeignBlock; a block that is not currently
// allocated fails with api.ErrDoubleFree. Both checks are best effort.
func (a *Allocator) Free(b api.Block) error {
	return a.FreeOn(a.cpu.Current(), b)
}

// FreeOn is Free with an explicit CPU id.
func (a *Allocator) FreeOn(cpu int, b api.Block) error {
	n, err := a.nodeOf(b)
	if err != nil {
		return err
	}
	if !a.states.CompareAndSwap(n, api.StateAllocated, api.StateMerging) {
		return api.Errorf(api.ErrCodeDoubleFree, "buddy: free %s: block is %s", b, a.states.Load(n)).
			WithContext("order", b.Order)
	}

	home := a.cpuIndex(cpu)
	st := &a.stats[home]
	st.frees.Add(1)
	st.allocPages.Add(-(1 << uint(b.Order)))
	a.coalesce(home, n, b.Order)
	return nil
}

// coalesce takes an owned node (state Merging) and merges it with its buddy
// for as long as the buddy can be claimed. The node that ends the climb is
// published Free on home's list.
//
// After publishing, the buddy is read once more: a buddy freed concurrently
// may have looked at our node before we published it. Of two racing frees at
// least one observes the other's publication, so two free buddies are never
// left unmerged.
func (a *Allocator) coalesce(home int, n uint32, order int) {
	for {
		if order >= a.maxOrder {
			// The parent is either the root or a node straddling the end
			// of the range; neither can become a block.
			a.publish(home, n, order)
			return
		}

		buddy := n ^ 1
		if a.states.CompareAndSwap(buddy, api.StateFree, api.StateMerging) {
			// Both children are ours; their stale list entries, if any,
			// are dropped by whoever pops them.
			a.states.Store(n, api.StateUnused)
			a.states.Store(buddy, api.StateUnused)
			n >>= 1
			order++
			a.states.Store(n, api.StateMerging)
			a.stats[home].merges.Add(1)
			continue
		}

		a.publish(home, n, order)
		if a.states.Load(buddy) != api.StateFree {
			return
		}
		if !a.states.CompareAndSwap(n, api.StateFree, api.StateMerging) {
			// Someone else took our node: an allocation, or the buddy's
			// own free merging us in.
			return
		}
	}
}
