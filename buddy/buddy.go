// File: buddy/buddy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package buddy implements a lock-free buddy page allocator with per-CPU
// free lists.
//
// Every node of the buddy tree owns one word in a shared state table
// (Free / Allocated / Split / Merging / Unused). Structural changes are
// single-word CAS transitions on that table; free blocks are additionally
// threaded into one Treiber stack per (CPU, order). Merges leave stale stack
// entries behind, which the next pop recognises by their state and drops.
//
// The allocator never locks and never allocates after New returns. Its
// bookkeeping storage comes from an api.Backend, and the CPU used to pick a
// free list comes from an api.CPU.
package buddy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/cpuid"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

var _ api.PageAllocator = (*Allocator)(nil)

// Allocator is a concurrent buddy allocator over a fixed page range.
// All methods are safe for concurrent use.
type Allocator struct {
	base      uintptr
	pageSize  int
	pageShift uint
	pages     int
	maxOrder  int // largest allocatable order
	rootOrder int // order of tree node 1
	ncpu      int
	cpu       api.CPU
	stealing  bool
	log       *slog.Logger

	states *concurrency.StateTable
	links  *concurrency.Links
	lists  []concurrency.Stack // ncpu rows of maxOrder+1 stacks
	stats  []cpuStats

	backend api.Backend
	storage [][]byte
	meta    int
}

// New creates an allocator for pageCount pages starting at base. Metadata is
// obtained from backend exactly once; the whole range starts free.
func New(base uintptr, pageCount int, backend api.Backend, opts ...Option) (*Allocator, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validate(base, pageCount, backend, cfg); err != nil {
		return nil, err
	}

	cpu := cfg.CPU
	if cpu == nil {
		cpu = cpuid.Default()
	}
	ncpu := cfg.CPUs
	if ncpu <= 0 {
		ncpu = cpu.Count()
	}
	if ncpu < 1 {
		ncpu = 1
	}

	a := &Allocator{
		base:      base,
		pageSize:  cfg.PageSize,
		pageShift: uint(floorLog2(cfg.PageSize)),
		pages:     pageCount,
		maxOrder:  floorLog2(pageCount),
		rootOrder: ceilLog2(pageCount),
		ncpu:      ncpu,
		cpu:       cpu,
		stealing:  cfg.Stealing,
		log:       cfg.Logger,
		backend:   backend,
	}
	a.stats = make([]cpuStats, ncpu)

	if err := a.obtainStorage(); err != nil {
		a.log.Error("buddy: metadata allocation failed",
			"pages", pageCount, "cpus", ncpu, "error", err)
		return nil, err
	}
	a.seed()

	a.log.Info("buddy: allocator ready",
		"base", fmt.Sprintf("%#x", base),
		"pages", pageCount,
		"page_size", a.pageSize,
		"max_order", a.maxOrder,
		"cpus", ncpu,
		"metadata_bytes", a.meta)
	return a, nil
}

func validate(base uintptr, pageCount int, backend api.Backend, cfg *Config) error {
	if backend == nil {
		return api.Errorf(api.ErrCodeInvalidArgument, "buddy: nil backend")
	}
	if pageCount <= 0 || pageCount > MaxPages {
		return api.Errorf(api.ErrCodeInvalidArgument, "buddy: page count %d outside [1, %d]", pageCount, MaxPages)
	}
	ps := cfg.PageSize
	if ps <= 0 || ps&(ps-1) != 0 {
		return api.Errorf(api.ErrCodeInvalidArgument, "buddy: page size %d is not a power of two", ps)
	}
	span := uint64(pageCount) * uint64(ps)
	if span/uint64(ps) != uint64(pageCount) || uint64(base) > uint64(math.MaxUint64)-span ||
		uint64(base)+span-1 > uint64(^uintptr(0)) {
		return api.Errorf(api.ErrCodeInvalidArgument, "buddy: range %#x + %d pages overflows the address space", base, pageCount)
	}
	if base%uintptr(ps) != 0 {
		return api.Errorf(api.ErrCodeInvalidArgument, "buddy: base %#x not aligned to page size %d", base, ps)
	}
	return nil
}

// obtainStorage draws the state table, link table and list heads from the
// backend, handing back whatever it got if a later request fails.
func (a *Allocator) obtainStorage() error {
	nodes := 1 << uint(a.rootOrder+1)
	heads := a.ncpu * (a.maxOrder + 1)

	get := func(what string, size, align int) ([]byte, error) {
		buf, err := a.backend.Allocate(size, align)
		if err == nil && len(buf) < size {
			a.storage = append(a.storage, buf)
			err = fmt.Errorf("short buffer: %d of %d bytes", len(buf), size)
		}
		if err != nil {
			a.releaseStorage()
			return nil, api.Errorf(api.ErrCodeBackendExhausted, "buddy: %s (%d bytes)", what, size).WithCause(err)
		}
		a.storage = append(a.storage, buf)
		a.meta += size
		return buf, nil
	}

	buf, err := get("state table", concurrency.StateTableBytes(nodes), 8)
	if err != nil {
		return err
	}
	if a.states, err = concurrency.NewStateTable(buf, nodes); err != nil {
		a.releaseStorage()
		return api.NewError(api.ErrCodeBackendExhausted, "buddy: state table").WithCause(err)
	}

	if buf, err = get("link table", concurrency.LinksBytes(nodes), 8); err != nil {
		return err
	}
	if a.links, err = concurrency.NewLinks(buf, nodes); err != nil {
		a.releaseStorage()
		return api.NewError(api.ErrCodeBackendExhausted, "buddy: link table").WithCause(err)
	}

	if buf, err = get("free-list heads", concurrency.StacksBytes(heads), concurrency.StackAlign); err != nil {
		return err
	}
	if a.lists, err = concurrency.NewStacks(buf, heads); err != nil {
		a.releaseStorage()
		return api.NewError(api.ErrCodeBackendExhausted, "buddy: free-list heads").WithCause(err)
	}
	return nil
}

func (a *Allocator) releaseStorage() {
	r, ok := a.backend.(api.Releaser)
	for _, buf := range a.storage {
		if ok {
			if err := r.Release(buf); err != nil {
				a.log.Warn("buddy: releasing metadata", "bytes", len(buf), "error", err)
			}
		}
	}
	a.storage = nil
	a.meta = 0
}

// seed covers [0, pages) with maximal aligned free blocks on CPU 0's lists.
// Their ancestors are Split; every other node stays Unused.
func (a *Allocator) seed() {
	off := 0
	for k := a.maxOrder; k >= 0; k-- {
		if a.pages&(1<<uint(k)) == 0 {
			continue
		}
		n := a.node(off, k)
		a.states.Seed(n, api.StateFree, true)
		a.list(0, k).Push(a.links, n)
		for p := n >> 1; p >= 1; p >>= 1 {
			a.states.Seed(p, api.StateSplit, false)
		}
		off += 1 << uint(k)
	}
}

// Close hands the metadata back to the backend when it supports release.
// The allocator must not be used afterwards.
func (a *Allocator) Close() error {
	r, ok := a.backend.(api.Releaser)
	if !ok {
		return nil
	}
	var first error
	for _, buf := range a.storage {
		if err := r.Release(buf); err != nil && first == nil {
			first = err
		}
	}
	a.storage = nil
	return first
}

// Geometry returns the fixed shape of the allocator.
func (a *Allocator) Geometry() api.Geometry {
	return api.Geometry{
		Base:          a.base,
		PageSize:      a.pageSize,
		PageCount:     a.pages,
		MaxOrder:      a.maxOrder,
		RootOrder:     a.rootOrder,
		Nodes:         a.states.Len(),
		CPUs:          a.ncpu,
		MetadataBytes: a.meta,
	}
}

// MaxOrder returns the largest order Alloc accepts.
func (a *Allocator) MaxOrder() int { return a.maxOrder }

func (a *Allocator) list(cpu, order int) *concurrency.Stack {
	return &a.lists[cpu*(a.maxOrder+1)+order]
}

func (a *Allocator) cpuIndex(cpu int) int {
	if cpu < 0 {
		cpu = -cpu
	}
	return cpu % a.ncpu
}

func (a *Allocator) block(n uint32, order int) api.Block {
	return api.Block{
		Addr:  a.base + uintptr(a.offsetOf(n))<<a.pageShift,
		Order: order,
	}
}

// nodeOf maps a block handle back to its tree node, rejecting handles that
// cannot have come from this allocator.
func (a *Allocator) nodeOf(b api.Block) (uint32, error) {
	foreign := func(why string) error {
		return api.Errorf(api.ErrCodeForeignBlock, "buddy: free %s: %s", b, why)
	}
	if b.Order < 0 || b.Order > a.maxOrder {
		return 0, foreign(fmt.Sprintf("order outside [0, %d]", a.maxOrder))
	}
	if b.Addr < a.base {
		return 0, foreign("below managed range")
	}
	rel := uint64(b.Addr - a.base)
	if rel&uint64(a.pageSize-1) != 0 {
		return 0, foreign("not page aligned")
	}
	off := rel >> a.pageShift
	size := uint64(1) << uint(b.Order)
	if off >= uint64(a.pages) || off+size > uint64(a.pages) {
		return 0, foreign("beyond managed range")
	}
	if off&(size-1) != 0 {
		return 0, foreign("not aligned to its order")
	}
	return a.node(int(off), b.Order), nil
}
