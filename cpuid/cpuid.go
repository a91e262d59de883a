// Package cpuid
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sources of "which logical CPU am I" for the allocator's per-CPU free lists.

package cpuid

import (
	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

// Compile-time interface compliance.
var (
	_ api.CPU = Func{}
	_ api.CPU = Fixed{}
	_ api.CPU = proc{}
	_ api.CPU = sched{}
)

// Func adapts a plain function to api.CPU.
type Func struct {
	F func() int
	N int
}

func (f Func) Current() int { return f.F() }
func (f Func) Count() int   { return f.N }

// Fixed always reports the same CPU.
type Fixed struct {
	ID int
	N  int
}

func (f Fixed) Current() int { return f.ID }

func (f Fixed) Count() int {
	if f.N < 1 {
		return 1
	}
	return f.N
}

// Default returns the OS CPU source where the platform can identify the
// running CPU, and the runtime P source otherwise.
func Default() api.CPU {
	if _, ok := concurrency.CurrentCPU(); ok {
		return Sched()
	}
	return Proc()
}
