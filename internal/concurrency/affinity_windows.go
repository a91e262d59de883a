// File: internal/concurrency/affinity_windows.go
//go:build windows
// +build windows

//
// Package concurrency implements Windows-specific CPU affinity.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Only the first processor group (64 CPUs) is addressable here.

package concurrency

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask     = modkernel32.NewProc("SetThreadAffinityMask")
	procGetCurrentProcessorNumber = modkernel32.NewProc("GetCurrentProcessorNumber")
)

// platformPinCurrentThread pins the current OS thread to the specified CPU.
func platformPinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	if cpuID >= 64 {
		runtime.UnlockOSThread()
		return fmt.Errorf("%w: %d beyond first processor group", ErrInvalidCPU, cpuID)
	}
	mask := uintptr(1) << uint(cpuID)
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		runtime.UnlockOSThread()
		return fmt.Errorf("SetThreadAffinityMask failed: %v", err)
	}
	return nil
}

// platformUnpinCurrentThread resets affinity to all CPUs.
func platformUnpinCurrentThread() error {
	defer runtime.UnlockOSThread()
	total := runtime.NumCPU()
	if total > 64 {
		total = 64
	}
	mask := ^uintptr(0)
	if total < 64 {
		mask = (uintptr(1) << uint(total)) - 1
	}
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		return fmt.Errorf("SetThreadAffinityMask(unpin) failed: %v", err)
	}
	return nil
}

// platformCurrentCPU returns the processor number within the current group.
func platformCurrentCPU() (int, bool) {
	n, _, _ := procGetCurrentProcessorNumber.Call()
	return int(n), true
}
