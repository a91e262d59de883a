// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrBadStorage indicates backend storage too small or misaligned for a table
	ErrBadStorage = errors.New("storage too small or misaligned")

	// ErrAffinityNotSupported indicates CPU affinity is not supported on this platform
	ErrAffinityNotSupported = errors.New("CPU affinity not supported")

	// ErrInvalidCPU indicates a CPU index outside the machine's range
	ErrInvalidCPU = errors.New("invalid CPU index")
)
