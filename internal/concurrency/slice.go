// File: internal/concurrency/slice.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed views over raw backend storage.

package concurrency

import (
	"fmt"
	"unsafe"
)

// castSlice reinterprets buf as n values of T. T must not contain Go
// pointers: backend storage may live outside the Go heap.
func castSlice[T any](buf []byte, n int) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d entries", ErrBadStorage, n)
	}
	if len(buf) < n*size {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrBadStorage, len(buf), n*size)
	}
	p := unsafe.Pointer(unsafe.SliceData(buf))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		return nil, fmt.Errorf("%w: %p not aligned to %d", ErrBadStorage, p, unsafe.Alignof(zero))
	}
	return unsafe.Slice((*T)(p), n), nil
}
