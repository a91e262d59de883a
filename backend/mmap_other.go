//go:build !unix && !windows

// File: backend/mmap_other.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without anonymous mappings fall back to the Go heap.

package backend

import "github.com/momentics/lfbuddy/api"

// Mmap returns the heap backend on this platform.
func Mmap() api.Backend { return heap{} }
