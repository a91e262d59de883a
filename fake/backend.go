// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/momentics/lfbuddy/api"
)

// ErrInjected is returned by a Backend whose failure point has been reached.
var ErrInjected = errors.New("fake: injected backend failure")

var (
	_ api.Backend  = (*Backend)(nil)
	_ api.Releaser = (*Backend)(nil)
)

// Request records one Allocate call.
type Request struct {
	Size  int
	Align int
}

// Backend is a heap-backed api.Backend that records every request, can fail
// on the n-th call, and tracks outstanding buffers.
type Backend struct {
	mu       sync.Mutex
	failAt   int // 1-based call index to fail; 0 never fails
	short    bool
	requests []Request
	live     map[*byte]int
}

// NewBackend returns a backend that never fails.
func NewBackend() *Backend {
	return &Backend{live: make(map[*byte]int)}
}

// FailAt makes the n-th Allocate call (1-based) fail with ErrInjected.
func (b *Backend) FailAt(n int) *Backend {
	b.mu.Lock()
	b.failAt = n
	b.mu.Unlock()
	return b
}

// Short makes every Allocate return one byte less than requested.
func (b *Backend) Short() *Backend {
	b.mu.Lock()
	b.short = true
	b.mu.Unlock()
	return b
}

func (b *Backend) Allocate(size, align int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, Request{Size: size, Align: align})
	if b.failAt == len(b.requests) {
		return nil, ErrInjected
	}
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil, api.ErrInvalidArgument
	}

	words := make([]uint64, (size+align+7)/8)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)
	off := int((uintptr(align) - uintptr(unsafe.Pointer(&raw[0]))%uintptr(align)) % uintptr(align))
	n := size
	if b.short {
		n--
	}
	buf := raw[off : off+n : off+n]
	b.live[&raw[off]] = n
	return buf, nil
}

// Release forgets buf. Releasing a buffer this backend never handed out
// returns api.ErrInvalidArgument.
func (b *Backend) Release(buf []byte) error {
	if len(buf) == 0 {
		return api.ErrInvalidArgument
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[&buf[0]]; !ok {
		return api.ErrInvalidArgument
	}
	delete(b.live, &buf[0])
	return nil
}

// Requests returns a copy of the recorded calls.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Outstanding returns the number of buffers handed out and not released.
func (b *Backend) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}
