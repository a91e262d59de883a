// File: internal/concurrency/stack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Treiber stack of tree node indices with links kept in a shared,
// node-indexed table, so push and pop never allocate.

package concurrency

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const linkWidth = 4 // bytes per link entry

// Links holds the "next" slot of every node. A slot is written only by the
// pusher that owns the node's linked bit.
type Links struct {
	next []atomic.Uint32
}

// LinksBytes returns the storage needed for n link slots.
func LinksBytes(n int) int { return n * linkWidth }

// NewLinks lays n link slots over buf (zeroed, 4-byte aligned).
func NewLinks(buf []byte, n int) (*Links, error) {
	next, err := castSlice[atomic.Uint32](buf, n)
	if err != nil {
		return nil, err
	}
	return &Links{next: next}, nil
}

// Stack is a lock-free LIFO. The head packs a 32-bit modification tag above a
// 32-bit node index; index 0 means empty, which is safe because tree node
// indices start at 1. The tag changes on every push and pop, defeating ABA
// when a node is popped and pushed back between a reader's load and CAS.
type Stack struct {
	head atomic.Uint64
	_    cpu.CacheLinePad
}

// StackAlign is the alignment requested for stack arrays.
const StackAlign = 64

// StacksBytes returns the storage needed for n padded stacks.
func StacksBytes(n int) int { return n * int(unsafe.Sizeof(Stack{})) }

// NewStacks lays n empty stacks over buf (zeroed, StackAlign aligned).
func NewStacks(buf []byte, n int) ([]Stack, error) {
	return castSlice[Stack](buf, n)
}

func pack(tag, idx uint32) uint64 { return uint64(tag)<<32 | uint64(idx) }

func unpack(v uint64) (tag, idx uint32) { return uint32(v >> 32), uint32(v) }

// Push threads node i onto the stack.
func (s *Stack) Push(l *Links, i uint32) {
	for {
		old := s.head.Load()
		tag, top := unpack(old)
		l.next[i].Store(top)
		if s.head.CompareAndSwap(old, pack(tag+1, i)) {
			return
		}
	}
}

// Pop removes the top node. ok is false only when the stack was observed
// empty.
func (s *Stack) Pop(l *Links) (i uint32, ok bool) {
	for {
		old := s.head.Load()
		tag, top := unpack(old)
		if top == 0 {
			return 0, false
		}
		// next may be stale if top was popped and re-pushed meanwhile;
		// the tag makes the CAS fail in that case.
		next := l.next[top].Load()
		if s.head.CompareAndSwap(old, pack(tag+1, next)) {
			return top, true
		}
	}
}

// Empty reports whether the stack was empty at the time of the call.
func (s *Stack) Empty() bool {
	_, top := unpack(s.head.Load())
	return top == 0
}

// Walk calls fn for every entry from top to bottom until fn returns false.
// It is only meaningful while nobody pushes or pops. At most limit entries
// are visited; the return value is false if the walk was cut short by limit,
// which indicates a cycle.
func (s *Stack) Walk(l *Links, limit int, fn func(i uint32) bool) bool {
	_, i := unpack(s.head.Load())
	for ; i != 0; i = l.next[i].Load() {
		if limit == 0 {
			return false
		}
		limit--
		if !fn(i) {
			return true
		}
	}
	return true
}
