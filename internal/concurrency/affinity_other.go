// File: internal/concurrency/affinity_other.go
//go:build !linux && !windows
// +build !linux,!windows

//
// Fallback implementation for platform-agnostic affinity operations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

func platformPinCurrentThread(cpuID int) error { return ErrAffinityNotSupported }

func platformUnpinCurrentThread() error { return nil }

func platformCurrentCPU() (int, bool) { return 0, false }
