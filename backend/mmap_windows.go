//go:build windows
// +build windows

// File: backend/mmap_windows.go
// Author: momentics <momentics@gmail.com>
//
// VirtualAlloc-backed storage for Windows.

package backend

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/lfbuddy/api"
)

var (
	_ api.Backend  = mmap{}
	_ api.Releaser = mmap{}
)

// allocationGranularity is the VirtualAlloc reservation alignment.
const allocationGranularity = 64 * 1024

type mmap struct{}

// Mmap returns a backend that commits fresh pages per request, outside the Go heap.
func Mmap() api.Backend { return mmap{} }

func (mmap) Allocate(size, align int) ([]byte, error) {
	if err := checkRequest(size, align); err != nil {
		return nil, err
	}
	if align > allocationGranularity {
		return nil, fmt.Errorf("backend: alignment %d exceeds allocation granularity: %w", align, api.ErrInvalidArgument)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("backend: VirtualAlloc %d bytes: %w", size, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (mmap) Release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := windows.VirtualFree(uintptr(unsafe.Pointer(&buf[0])), 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("backend: VirtualFree: %w", err)
	}
	return nil
}
