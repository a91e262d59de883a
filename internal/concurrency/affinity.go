// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform CPU affinity and CPU identification.

package concurrency

import (
	"fmt"
	"runtime"
)

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}

// PinCurrentThread locks the calling goroutine to its OS thread and binds
// that thread to cpuID.
func PinCurrentThread(cpuID int) error {
	if cpuID < 0 || cpuID >= NumCPUs() {
		return fmt.Errorf("%w: %d (have %d)", ErrInvalidCPU, cpuID, NumCPUs())
	}
	return platformPinCurrentThread(cpuID)
}

// UnpinCurrentThread restores the thread's original affinity and unlocks the
// goroutine from it.
func UnpinCurrentThread() error {
	return platformUnpinCurrentThread()
}

// CurrentCPU returns the logical CPU the calling thread is running on.
// ok is false where the platform cannot tell.
func CurrentCPU() (cpu int, ok bool) {
	return platformCurrentCPU()
}
