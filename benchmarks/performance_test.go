// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for lfbuddy components.

package benchmarks

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/backend"
	"github.com/momentics/lfbuddy/buddy"
	"github.com/momentics/lfbuddy/cpuid"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

const benchPages = 1 << 20

func newAllocator(b *testing.B, opts ...buddy.Option) *buddy.Allocator {
	b.Helper()
	a, err := buddy.New(0, benchPages, backend.Heap(), opts...)
	if err != nil {
		b.Fatal(err)
	}
	return a
}

// BenchmarkSinglePageFanOut allocates and frees single pages from 1 to 16
// goroutines, each routed to its own CPU list.
func BenchmarkSinglePageFanOut(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8, 16} {
		b.Run(fmt.Sprintf("goroutines=%d", workers), func(b *testing.B) {
			a := newAllocator(b, buddy.WithCPUs(workers))
			per := b.N/workers + 1

			b.ResetTimer()
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < per; i++ {
						blk, err := a.AllocOn(w, 0)
						if err != nil {
							b.Error(err)
							return
						}
						if err := a.FreeOn(w, blk); err != nil {
							b.Error(err)
							return
						}
					}
				}(w)
			}
			wg.Wait()
		})
	}
}

// BenchmarkAllocParallel uses the runtime P as CPU id.
func BenchmarkAllocParallel(b *testing.B) {
	a := newAllocator(b, buddy.WithCPU(cpuid.Proc()))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			blk, err := a.Alloc(0)
			if err != nil {
				b.Error(err)
				return
			}
			_ = a.Free(blk)
		}
	})
}

// BenchmarkAllocHeld keeps a window of live blocks per goroutine so that
// frees coalesce against neighbours still in use.
func BenchmarkAllocHeld(b *testing.B) {
	a := newAllocator(b, buddy.WithCPU(cpuid.Proc()))
	var seq atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var window [32]api.Block
		n := 0
		order := int(seq.Add(1) % 4)
		for pb.Next() {
			if n == len(window) {
				for _, blk := range window {
					_ = a.Free(blk)
				}
				n = 0
			}
			blk, err := a.Alloc(order)
			if err != nil {
				continue
			}
			window[n] = blk
			n++
		}
		for _, blk := range window[:n] {
			_ = a.Free(blk)
		}
	})
}

// BenchmarkSplitDepth measures an allocation that must split from the root
// every time.
func BenchmarkSplitDepth(b *testing.B) {
	a := newAllocator(b, buddy.WithCPUs(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		blk, err := a.Alloc(0)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(blk); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLockFreeQueue measures the handoff queue used by the stress driver.
func BenchmarkLockFreeQueue(b *testing.B) {
	q := concurrency.NewLockFreeQueue[api.Block](1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		blk := api.Block{Order: 1}
		for pb.Next() {
			if !q.Enqueue(blk) {
				q.Dequeue()
				q.Enqueue(blk)
			}
		}
	})
}
