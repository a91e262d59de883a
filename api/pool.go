// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Storage contracts used to obtain allocator bookkeeping memory.

package api

// Backend supplies raw storage for the allocator's own metadata. It is called
// only while the allocator is being constructed.
type Backend interface {
	// Allocate returns size zeroed bytes whose first byte is aligned to align.
	Allocate(size, align int) ([]byte, error)
}

// Releaser is implemented by backends that can take storage back, e.g. to
// unwind a partially constructed allocator.
type Releaser interface {
	Release(buf []byte) error
}
