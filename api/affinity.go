// Package api
// Author: momentics@gmail.com
//
// CPU identity and thread pinning contracts.

package api

// CPU reports which logical processor the caller runs on. The allocator uses
// it only to select per-CPU free lists, so an id that is stale by the time it
// is used costs locality, never correctness.
type CPU interface {
	// Current returns the caller's logical CPU index. Values outside
	// [0, Count()) are reduced modulo the allocator's CPU count.
	Current() int
	// Count returns the number of logical CPUs the source can report.
	Count() int
}

// Affinity controls execution on particular CPUs.
type Affinity interface {
	// Pin locks the current goroutine to its OS thread and that thread to cpuID.
	Pin(cpuID int) error
	// Unpin removes affinity.
	Unpin() error
}
