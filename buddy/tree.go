// File: buddy/tree.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Heap-ordered buddy tree arithmetic. The root is node 1 and covers
// 1<<rootOrder pages; node i has children 2i and 2i+1, so a node's buddy is
// i^1 and its parent i>>1.

package buddy

import "math/bits"

// node returns the index of the block of the given order at page offset off.
func (a *Allocator) node(off, order int) uint32 {
	return uint32(1)<<uint(a.rootOrder-order) + uint32(off>>uint(order))
}

// orderOf returns the order of node i.
func (a *Allocator) orderOf(i uint32) int {
	return a.rootOrder - (bits.Len32(i) - 1)
}

// offsetOf returns the first page covered by node i.
func (a *Allocator) offsetOf(i uint32) int {
	level := bits.Len32(i) - 1
	order := a.rootOrder - level
	return int(i-uint32(1)<<uint(level)) << uint(order)
}

// ceilLog2 returns the smallest k with 1<<k >= n, for n >= 1.
func ceilLog2(n int) int {
	return bits.Len(uint(n - 1))
}

// floorLog2 returns the largest k with 1<<k <= n, for n >= 1.
func floorLog2(n int) int {
	return bits.Len(uint(n)) - 1
}
