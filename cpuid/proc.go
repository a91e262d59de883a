// Package cpuid
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cpuid

import (
	"runtime"
	_ "unsafe" // go:linkname

	"github.com/momentics/lfbuddy/api"
)

//go:linkname runtime_procPin runtime.procPin
func runtime_procPin() int

//go:linkname runtime_procUnpin runtime.procUnpin
func runtime_procUnpin()

type proc struct{}

// Proc reports the id of the runtime P executing the caller. P ids are dense
// in [0, GOMAXPROCS) and stay stable for a goroutine between preemptions,
// which is all the free-list routing needs.
func Proc() api.CPU { return proc{} }

func (proc) Current() int {
	id := runtime_procPin()
	runtime_procUnpin()
	return id
}

func (proc) Count() int { return runtime.GOMAXPROCS(0) }
