// File: backend/backend.go
// Author: momentics <momentics@gmail.com>
//
// Storage backends the allocator draws its bookkeeping memory from.
// Platform-specific mappings live in mmap_*.go guarded by build tags.

package backend

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/lfbuddy/api"
)

// ErrBudget is returned by a Limit backend once its byte budget is spent.
var ErrBudget = errors.New("backend: budget exhausted")

var (
	_ api.Backend  = heap{}
	_ api.Backend  = (*Limited)(nil)
	_ api.Releaser = (*Limited)(nil)
)

func checkRequest(size, align int) error {
	if size <= 0 {
		return fmt.Errorf("backend: size %d: %w", size, api.ErrInvalidArgument)
	}
	if align <= 0 || align&(align-1) != 0 {
		return fmt.Errorf("backend: alignment %d not a power of two: %w", align, api.ErrInvalidArgument)
	}
	return nil
}

type heap struct{}

// Heap returns a backend drawing from the Go heap. Storage is released by
// the garbage collector once the allocator is unreachable.
func Heap() api.Backend { return heap{} }

func (heap) Allocate(size, align int) ([]byte, error) {
	if err := checkRequest(size, align); err != nil {
		return nil, err
	}
	// []uint64 keeps the block pointer-free and 8-byte aligned; the extra
	// words absorb the offset needed for larger alignments.
	words := make([]uint64, (size+align+7)/8)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)
	off := int((uintptr(align) - uintptr(unsafe.Pointer(&raw[0]))%uintptr(align)) % uintptr(align))
	return raw[off : off+size : off+size], nil
}

// Limited caps the bytes an inner backend may hand out.
type Limited struct {
	inner  api.Backend
	budget int64
	used   atomic.Int64
}

// Limit wraps inner with a budget of n bytes.
func Limit(inner api.Backend, n int) *Limited {
	return &Limited{inner: inner, budget: int64(n)}
}

func (l *Limited) Allocate(size, align int) ([]byte, error) {
	if err := checkRequest(size, align); err != nil {
		return nil, err
	}
	if l.used.Add(int64(size)) > l.budget {
		l.used.Add(-int64(size))
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d used",
			ErrBudget, size, l.used.Load(), l.budget)
	}
	buf, err := l.inner.Allocate(size, align)
	if err != nil {
		l.used.Add(-int64(size))
		return nil, err
	}
	return buf, nil
}

// Release refunds buf to the budget and passes it on when the inner backend
// can release storage.
func (l *Limited) Release(buf []byte) error {
	l.used.Add(-int64(len(buf)))
	if r, ok := l.inner.(api.Releaser); ok {
		return r.Release(buf)
	}
	return nil
}

// Used returns the bytes currently handed out.
func (l *Limited) Used() int { return int(l.used.Load()) }
