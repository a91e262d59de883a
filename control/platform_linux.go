//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform debug probe integrations.

package control

import (
	"runtime"

	"github.com/momentics/lfbuddy/internal/concurrency"
)

// RegisterPlatformProbes sets Linux-specific debug metrics.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return concurrency.NumCPUs()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.current_cpu", func() any {
		if id, ok := concurrency.CurrentCPU(); ok {
			return id
		}
		return -1
	})
}
