package concurrency

import "unsafe"

// alignedBytes returns n zeroed bytes aligned to 64.
func alignedBytes(n int) []byte {
	words := make([]uint64, n/8+16)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	off := int((64 - uintptr(unsafe.Pointer(&b[0]))%64) % 64)
	return b[off : off+n]
}
