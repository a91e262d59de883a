// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "fmt"

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 4096

// BlockState enumerates the status of a buddy tree node.
type BlockState uint32

const (
	// StateUnused marks a node that is not an active block: covered by an
	// active ancestor, retired by a merge, or outside the managed range.
	StateUnused BlockState = iota
	StateFree
	StateAllocated
	StateSplit
	// StateMerging marks a node held exclusively by a free/merge in progress.
	StateMerging
)

func (s BlockState) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateFree:
		return "free"
	case StateAllocated:
		return "allocated"
	case StateSplit:
		return "split"
	case StateMerging:
		return "merging"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Block is a handle to 1<<Order contiguous pages starting at Addr.
type Block struct {
	Addr  uintptr
	Order int
}

// Pages returns the number of pages covered by the block.
func (b Block) Pages() int { return 1 << b.Order }

func (b Block) String() string {
	return fmt.Sprintf("block{addr=%#x order=%d}", b.Addr, b.Order)
}

// Stats provides counters aggregated over all CPUs.
type Stats struct {
	Allocs     uint64 // successful allocations
	Frees      uint64 // successful frees
	Splits     uint64 // blocks divided into two children
	Merges     uint64 // buddy pairs coalesced into their parent
	Steals     uint64 // blocks obtained from another CPU's free lists
	StalePops  uint64 // free-list entries dropped because their node was no longer free
	OutOfMem   uint64 // allocations that found no block anywhere
	AllocPages uint64 // pages currently allocated
}

// Geometry describes the fixed shape of an allocator.
type Geometry struct {
	Base          uintptr
	PageSize      int
	PageCount     int
	MaxOrder      int // largest allocatable order
	RootOrder     int // order of the tree root, >= MaxOrder
	Nodes         int // entries in the block state table
	CPUs          int
	MetadataBytes int // bytes obtained from the backend
}
