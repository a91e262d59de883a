// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in internal/concurrency (affinity_linux.go, affinity_windows.go,
// etc.) guarded by build tags.

package affinity

import (
	"errors"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

// ErrNotSupported is returned where the platform cannot bind threads to CPUs.
var ErrNotSupported = concurrency.ErrAffinityNotSupported

// Pin locks the calling goroutine to its OS thread and binds that thread to
// the given logical CPU. Callers must Unpin from the same goroutine.
func Pin(cpuID int) error {
	return concurrency.PinCurrentThread(cpuID)
}

// Unpin restores the thread's original CPU mask and releases the goroutine.
func Unpin() error {
	return concurrency.UnpinCurrentThread()
}

// Count returns the number of logical CPUs.
func Count() int {
	return concurrency.NumCPUs()
}

// Run executes fn pinned to cpuID. When pinning is not supported fn runs
// unpinned and pinned is false.
func Run(cpuID int, fn func()) (pinned bool, err error) {
	if err := Pin(cpuID); err != nil {
		if errors.Is(err, ErrNotSupported) {
			fn()
			return false, nil
		}
		return false, err
	}
	defer func() {
		if uerr := Unpin(); uerr != nil && err == nil {
			err = uerr
		}
	}()
	fn()
	return true, nil
}

// Thread implements api.Affinity for the calling goroutine.
type Thread struct{}

var _ api.Affinity = Thread{}

func (Thread) Pin(cpuID int) error { return Pin(cpuID) }
func (Thread) Unpin() error        { return Unpin() }
