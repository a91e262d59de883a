// Package cpuid
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cpuid

import (
	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

type sched struct {
	fallback proc
}

// Sched reports the OS CPU of the calling thread (getcpu on Linux,
// GetCurrentProcessorNumber on Windows). Where the OS cannot answer it
// degrades to the runtime P id.
func Sched() api.CPU { return sched{} }

func (s sched) Current() int {
	if cpu, ok := concurrency.CurrentCPU(); ok {
		return cpu
	}
	return s.fallback.Current()
}

func (sched) Count() int { return concurrency.NumCPUs() }
