// File: internal/concurrency/affinity_linux.go
//go:build linux
// +build linux

//
// Linux CPU affinity via sched_setaffinity and getcpu, no cgo required.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	initialMask    unix.CPUSet
	initialMaskErr = unix.SchedGetaffinity(0, &initialMask)
)

// platformPinCurrentThread binds the current OS thread to cpuID.
func platformPinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}

// platformUnpinCurrentThread restores the mask the process started with.
func platformUnpinCurrentThread() error {
	defer runtime.UnlockOSThread()
	if initialMaskErr != nil {
		return fmt.Errorf("no initial affinity mask: %w", initialMaskErr)
	}
	mask := initialMask
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("sched_setaffinity restore: %w", err)
	}
	return nil
}

// platformCurrentCPU asks the kernel which CPU runs the calling thread.
func platformCurrentCPU() (int, bool) {
	var cpu, node uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0, false
	}
	return int(cpu), true
}
