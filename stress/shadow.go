// File: stress/shadow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stress

import (
	"sync/atomic"

	"github.com/momentics/lfbuddy/api"
)

// shadow records which pages are owned, one flag per page, independently of
// the allocator under test.
type shadow struct {
	base     uintptr
	pageSize uintptr
	owned    []atomic.Uint32
}

func newShadow(g api.Geometry) *shadow {
	return &shadow{
		base:     g.Base,
		pageSize: uintptr(g.PageSize),
		owned:    make([]atomic.Uint32, g.PageCount),
	}
}

func (s *shadow) span(b api.Block) (first, end int) {
	first = int((b.Addr - s.base) / s.pageSize)
	return first, first + b.Pages()
}

// claim marks the block's pages owned and reports false if any of them
// already was. Pages claimed before the conflict stay marked.
func (s *shadow) claim(b api.Block) bool {
	first, end := s.span(b)
	if first < 0 || end > len(s.owned) {
		return false
	}
	ok := true
	for p := first; p < end; p++ {
		if !s.owned[p].CompareAndSwap(0, 1) {
			ok = false
		}
	}
	return ok
}

func (s *shadow) drop(b api.Block) {
	first, end := s.span(b)
	for p := max(first, 0); p < min(end, len(s.owned)); p++ {
		s.owned[p].Store(0)
	}
}

// count returns the number of pages currently marked.
func (s *shadow) count() int {
	n := 0
	for i := range s.owned {
		n += int(s.owned[i].Load())
	}
	return n
}
