// Package api
// Author: momentics
//
// Live debug and contract validation support for production workloads.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)
}

// PageAllocator is the public contract of a page-order allocator.
type PageAllocator interface {
	Alloc(order int) (Block, error)
	Free(b Block) error
	Stats() Stats
	Geometry() Geometry
}
