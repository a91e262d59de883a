// File: buddy/alloc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocation path: pop locally, split from above on a miss, steal from other
// CPUs only when nothing local is left.

package buddy

import (
	"github.com/momentics/lfbuddy/api"
)

// Alloc returns a block of 1<<order pages owned by the caller until Free.
// It fails with api.ErrInvalidOrder for orders outside [0, MaxOrder] and with
// api.ErrOutOfMemory when no block of that order or larger is free.
func (a *Allocator) Alloc(order int) (api.Block, error) {
	return a.AllocOn(a.cpu.Current(), order)
}

// AllocOn is Alloc for callers that know their CPU (or use a synthetic
// per-worker id) and want to bypass the configured CPU source.
func (a *Allocator) AllocOn(cpu, order int) (api.Block, error) {
	if order < 0 || order > a.maxOrder {
		return api.Block{}, api.Errorf(api.ErrCodeInvalidOrder,
			"buddy: order %d outside [0, %d]", order, a.maxOrder).WithContext("order", order)
	}
	home := a.cpuIndex(cpu)
	st := &a.stats[home]

	n, ok := a.take(home, home, order)
	if !ok && a.stealing {
		for i := 1; i < a.ncpu && !ok; i++ {
			n, ok = a.take(home, (home+i)%a.ncpu, order)
		}
		if ok {
			st.steals.Add(1)
		}
	}
	if !ok {
		st.oom.Add(1)
		a.log.Debug("buddy: out of memory", "order", order, "cpu", home)
		return api.Block{}, api.Errorf(api.ErrCodeOutOfMemory,
			"buddy: no free block of order %d or larger", order).WithContext("order", order).WithContext("cpu", home)
	}

	st.allocs.Add(1)
	st.allocPages.Add(1 << uint(order))
	return a.block(n, order), nil
}

// take obtains an exclusively owned node of the given order, left in state
// Allocated. It pops from src's list and, on a miss, splits a block taken
// the same way one order up. Halves not handed out are published on home's
// lists.
func (a *Allocator) take(home, src, order int) (uint32, bool) {
	if n, ok := a.pop(home, src, order); ok {
		return n, true
	}
	if order == a.maxOrder {
		return 0, false
	}
	p, ok := a.take(home, src, order+1)
	if !ok {
		return 0, false
	}

	// p is ours; its children are Unused, touched by nobody but poppers
	// dropping stale entries, so plain stores suffice. The left child goes
	// Allocated before the right one is published so that a concurrent free
	// of the right child never sees a Free buddy.
	a.states.Store(p, api.StateSplit)
	left, right := p<<1, p<<1|1
	a.states.Store(left, api.StateAllocated)
	a.publish(home, right, order)
	a.stats[home].splits.Add(1)
	return left, true
}

// pop removes free-list entries of (src, order) until one refers to a node
// that is still Free, claiming it as Allocated.
func (a *Allocator) pop(home, src, order int) (uint32, bool) {
	l := a.list(src, order)
	for {
		n, ok := l.Pop(a.links)
		if !ok {
			return 0, false
		}
		if a.states.Unlink(n, api.StateAllocated) {
			return n, true
		}
		a.stats[home].stalePops.Add(1)
	}
}

// publish marks an owned node Free and pushes it on home's list unless a
// stale entry for it is still threaded somewhere.
func (a *Allocator) publish(home int, n uint32, order int) {
	if a.states.Publish(n) {
		a.list(home, order).Push(a.links, n)
	}
}
