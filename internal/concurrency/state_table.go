// File: internal/concurrency/state_table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Block state table: one atomic word per buddy tree node.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/lfbuddy/api"
)

// Word layout: low bits hold the api.BlockState, the top bit records that the
// node is threaded into a free list (or is being popped from one). Only a
// pusher sets the bit and only a popper clears it, so a node never sits in
// two stacks at once even though merges leave stale entries behind.
const (
	stateMask  uint32 = 0xff
	linkedBit  uint32 = 1 << 31
	stateWidth        = 4 // bytes per entry
)

// StateTable is a flat array of tagged node states indexed by tree position.
type StateTable struct {
	words []atomic.Uint32
}

// StateTableBytes returns the storage needed for n entries.
func StateTableBytes(n int) int { return n * stateWidth }

// NewStateTable lays a table of n entries over buf. buf must be zeroed and
// 4-byte aligned; every entry starts as api.StateUnused.
func NewStateTable(buf []byte, n int) (*StateTable, error) {
	words, err := castSlice[atomic.Uint32](buf, n)
	if err != nil {
		return nil, err
	}
	return &StateTable{words: words}, nil
}

// Len returns the number of entries.
func (t *StateTable) Len() int { return len(t.words) }

// Load returns the state of node i.
func (t *StateTable) Load(i uint32) api.BlockState {
	return api.BlockState(t.words[i].Load() & stateMask)
}

// Linked reports whether node i is currently threaded into a free list.
func (t *StateTable) Linked(i uint32) bool {
	return t.words[i].Load()&linkedBit != 0
}

// CompareAndSwap moves node i from old to new and reports success. The linked
// bit is preserved; a concurrent change of that bit alone is retried rather
// than reported as a lost race.
func (t *StateTable) CompareAndSwap(i uint32, old, new api.BlockState) bool {
	w := &t.words[i]
	for {
		cur := w.Load()
		if api.BlockState(cur&stateMask) != old {
			return false
		}
		if w.CompareAndSwap(cur, cur&linkedBit|uint32(new)) {
			return true
		}
	}
}

// Store sets the state of a node the caller owns, preserving the linked bit.
func (t *StateTable) Store(i uint32, s api.BlockState) {
	w := &t.words[i]
	for {
		cur := w.Load()
		if w.CompareAndSwap(cur, cur&linkedBit|uint32(s)) {
			return
		}
	}
}

// Publish marks an owned node Free and flags it linked. It returns true when
// the caller must push the node onto a free list; false means a stale entry
// for the node is still threaded somewhere and now stands for it again.
func (t *StateTable) Publish(i uint32) (push bool) {
	w := &t.words[i]
	for {
		cur := w.Load()
		if w.CompareAndSwap(cur, linkedBit|uint32(api.StateFree)) {
			return cur&linkedBit == 0
		}
	}
}

// Unlink is called by whoever just removed node i from a free list. When the
// node is Free it is claimed into state to and true is returned; otherwise
// the entry was stale and only the linked bit is dropped.
func (t *StateTable) Unlink(i uint32, to api.BlockState) (claimed bool) {
	w := &t.words[i]
	for {
		cur := w.Load()
		free := api.BlockState(cur&stateMask) == api.StateFree
		next := cur &^ linkedBit
		if free {
			next = uint32(to)
		}
		if w.CompareAndSwap(cur, next) {
			return free
		}
	}
}

// Seed writes an initial state with the linked bit set as requested. It is
// only valid before the table is shared.
func (t *StateTable) Seed(i uint32, s api.BlockState, linked bool) {
	v := uint32(s)
	if linked {
		v |= linkedBit
	}
	t.words[i].Store(v)
}
