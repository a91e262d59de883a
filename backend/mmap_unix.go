//go:build unix

// File: backend/mmap_unix.go
// Author: momentics <momentics@gmail.com>
//
// Anonymous private mappings via golang.org/x/sys/unix.

package backend

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/lfbuddy/api"
)

var (
	_ api.Backend  = mmap{}
	_ api.Releaser = mmap{}
)

type mmap struct{}

// Mmap returns a backend that maps fresh anonymous memory per request, outside
// the Go heap. Mappings are page aligned and zero filled by the kernel.
func Mmap() api.Backend { return mmap{} }

func (mmap) Allocate(size, align int) ([]byte, error) {
	if err := checkRequest(size, align); err != nil {
		return nil, err
	}
	if align > os.Getpagesize() {
		return nil, fmt.Errorf("backend: alignment %d exceeds page size: %w", align, api.ErrInvalidArgument)
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("backend: mmap %d bytes: %w", size, err)
	}
	return buf, nil
}

func (mmap) Release(buf []byte) error {
	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("backend: munmap: %w", err)
	}
	return nil
}
