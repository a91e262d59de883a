package main

import (
	"fmt"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/backend"
	"github.com/momentics/lfbuddy/buddy"
)

// allocatorFlags are shared by the commands that build an allocator.
type allocatorFlags struct {
	pages    int
	pageSize int
	cpus     int
	backend  string
	steal    bool
}

func (f *allocatorFlags) newAllocator() (*buddy.Allocator, error) {
	var be api.Backend
	switch f.backend {
	case "heap":
		be = backend.Heap()
	case "mmap":
		be = backend.Mmap()
	default:
		return nil, fmt.Errorf("unknown backend %q (want heap or mmap)", f.backend)
	}

	printVerbose("Creating allocator: %d pages of %d bytes, %s backend\n", f.pages, f.pageSize, f.backend)
	a, err := buddy.New(0, f.pages, be,
		buddy.WithPageSize(f.pageSize),
		buddy.WithCPUs(f.cpus),
		buddy.WithStealing(f.steal),
		buddy.WithLogger(newLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocator: %w", err)
	}
	return a, nil
}
