// File: stress/stress.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package stress drives an allocator from many goroutines with randomised
// alloc/free traffic and verifies it against an external page ownership map.

package stress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/lfbuddy/affinity"
	"github.com/momentics/lfbuddy/api"
	"github.com/momentics/lfbuddy/internal/concurrency"
)

var (
	// ErrOverlap reports a page handed to two owners at once.
	ErrOverlap = errors.New("stress: overlapping allocation")
	// ErrLeak reports free memory that did not coalesce back to its
	// starting shape once every block was returned.
	ErrLeak = errors.New("stress: free blocks not restored")
)

// Allocator is the surface the driver exercises.
type Allocator interface {
	api.PageAllocator
	AllocOn(cpu, order int) (api.Block, error)
	FreeOn(cpu int, b api.Block) error
	Check() error
	FreeBlocks() []int
}

// Config controls a run.
type Config struct {
	Workers    int
	Iterations int     // operations per worker
	MaxOrder   int     // largest order requested, clamped to the allocator's
	MaxLive    int     // blocks a worker holds before it must free
	Cross      float64 // fraction of frees handed to another worker
	Pin        bool    // bind worker i to CPU i mod NumCPU
	Seed       int64
	Logger     *slog.Logger
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		Iterations: 10000,
		MaxOrder:   3,
		MaxLive:    64,
		Cross:      0.25,
		Seed:       1,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Report summarises a run.
type Report struct {
	Workers    int           `json:"workers"`
	Iterations int           `json:"iterations"`
	Allocs     uint64        `json:"allocs"`
	Frees      uint64        `json:"frees"`
	OutOfMem   uint64        `json:"out_of_mem"`
	Handoffs   uint64        `json:"handoffs"`
	Overlaps   uint64        `json:"overlaps"`
	Pinned     int           `json:"pinned"`
	Cancelled  bool          `json:"cancelled"`
	Coalesced  bool          `json:"coalesced"`
	Duration   time.Duration `json:"duration"`
	Stats      api.Stats     `json:"stats"`
	FreeBlocks []int         `json:"free_blocks"`
}

// OpsPerSecond returns completed allocs and frees per second.
func (r Report) OpsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Allocs+r.Frees) / r.Duration.Seconds()
}

func (c *Config) validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("stress: %d workers: %w", c.Workers, api.ErrInvalidArgument)
	case c.Iterations < 0:
		return fmt.Errorf("stress: %d iterations: %w", c.Iterations, api.ErrInvalidArgument)
	case c.MaxOrder < 0:
		return fmt.Errorf("stress: max order %d: %w", c.MaxOrder, api.ErrInvalidArgument)
	case c.Cross < 0 || c.Cross > 1:
		return fmt.Errorf("stress: cross ratio %v outside [0, 1]: %w", c.Cross, api.ErrInvalidArgument)
	}
	if c.MaxLive < 1 {
		c.MaxLive = 1
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}

// run is the state shared by the workers of one Run.
type run struct {
	alloc    Allocator
	cfg      Config
	maxOrder int
	pages    *shadow
	inbox    []*concurrency.LockFreeQueue[api.Block]

	allocs, frees, oom, handoffs, overlaps atomic.Uint64
	pinned                                 atomic.Int64
	errs                                   chan error
}

// Run executes the workload, returns every block, and verifies that the
// allocator is consistent and fully coalesced afterwards. It must be the
// only user of alloc for its duration. Cancelling ctx stops the workers
// early; verification still runs and ctx's error is returned if it passes.
func Run(ctx context.Context, alloc Allocator, cfg Config) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}
	g := alloc.Geometry()
	r := &run{
		alloc:    alloc,
		cfg:      cfg,
		maxOrder: min(cfg.MaxOrder, g.MaxOrder),
		pages:    newShadow(g),
		inbox:    make([]*concurrency.LockFreeQueue[api.Block], cfg.Workers),
		errs:     make(chan error, cfg.Workers+1),
	}
	for i := range r.inbox {
		r.inbox[i] = concurrency.NewLockFreeQueue[api.Block](cfg.MaxLive * 4)
	}
	before := alloc.FreeBlocks()
	statsBefore := alloc.Stats()
	log := cfg.Logger
	log.Info("stress: starting",
		"workers", cfg.Workers, "iterations", cfg.Iterations,
		"max_order", r.maxOrder, "cross", cfg.Cross, "pin", cfg.Pin)

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r.worker(ctx, w)
		}(w)
	}
	wg.Wait()

	// Handed-off blocks whose receiver had already finished.
	for w, in := range r.inbox {
		for {
			b, ok := in.Dequeue()
			if !ok {
				break
			}
			r.free(w, b, false)
		}
	}
	close(r.errs)

	rep := Report{
		Workers:    cfg.Workers,
		Iterations: cfg.Iterations,
		Allocs:     r.allocs.Load(),
		Frees:      r.frees.Load(),
		OutOfMem:   r.oom.Load(),
		Handoffs:   r.handoffs.Load(),
		Overlaps:   r.overlaps.Load(),
		Pinned:     int(r.pinned.Load()),
		Cancelled:  ctx.Err() != nil,
		Duration:   time.Since(start),
		Stats:      diffStats(alloc.Stats(), statsBefore),
		FreeBlocks: alloc.FreeBlocks(),
	}
	rep.Coalesced = slices.Equal(before, rep.FreeBlocks)
	log.Info("stress: finished",
		"allocs", rep.Allocs, "frees", rep.Frees, "oom", rep.OutOfMem,
		"handoffs", rep.Handoffs, "duration", rep.Duration, "ops_per_sec", int64(rep.OpsPerSecond()))

	if err := <-r.errs; err != nil {
		return rep, err
	}
	if rep.Overlaps != 0 {
		return rep, fmt.Errorf("%w: %d blocks", ErrOverlap, rep.Overlaps)
	}
	if err := alloc.Check(); err != nil {
		return rep, fmt.Errorf("stress: allocator inconsistent after run: %w", err)
	}
	if !rep.Coalesced {
		return rep, fmt.Errorf("%w: free blocks per order %v, started with %v", ErrLeak, rep.FreeBlocks, before)
	}
	if rep.Cancelled {
		return rep, ctx.Err()
	}
	return rep, nil
}

func (r *run) worker(ctx context.Context, w int) {
	pinned := false
	if r.cfg.Pin {
		cpu := w % affinity.Count()
		if err := affinity.Pin(cpu); err != nil {
			r.cfg.Logger.Warn("stress: pinning failed, running unpinned", "worker", w, "cpu", cpu, "error", err)
		} else {
			pinned = true
			r.pinned.Add(1)
			defer func() {
				if err := affinity.Unpin(); err != nil {
					r.cfg.Logger.Warn("stress: unpin", "worker", w, "error", err)
				}
			}()
		}
	}

	rng := rand.New(rand.NewSource(r.cfg.Seed + int64(w)))
	live := queue.New()
	for i := 0; i < r.cfg.Iterations; i++ {
		if i&63 == 0 && ctx.Err() != nil {
			break
		}
		r.drain(w, pinned)

		if live.Length() > 0 && (live.Length() >= r.cfg.MaxLive || rng.Intn(2) == 0) {
			b := live.Remove().(api.Block)
			r.pages.drop(b)
			if r.cfg.Workers > 1 && rng.Float64() < r.cfg.Cross {
				to := (w + 1 + rng.Intn(r.cfg.Workers-1)) % r.cfg.Workers
				if r.inbox[to].Enqueue(b) {
					r.handoffs.Add(1)
					continue
				}
			}
			r.free(w, b, pinned)
			continue
		}

		order := rng.Intn(r.maxOrder + 1)
		var b api.Block
		var err error
		if pinned {
			b, err = r.alloc.Alloc(order)
		} else {
			b, err = r.alloc.AllocOn(w, order)
		}
		if err != nil {
			if errors.Is(err, api.ErrOutOfMemory) {
				r.oom.Add(1)
				continue
			}
			r.fail(fmt.Errorf("stress: worker %d alloc order %d: %w", w, order, err))
			return
		}
		r.allocs.Add(1)
		if !r.pages.claim(b) {
			r.overlaps.Add(1)
			r.cfg.Logger.Error("stress: overlapping block", "worker", w, "block", b.String())
		}
		live.Add(b)
	}

	for live.Length() > 0 {
		b := live.Remove().(api.Block)
		r.pages.drop(b)
		r.free(w, b, pinned)
	}
	r.drain(w, pinned)
	r.cfg.Logger.Debug("stress: worker done", "worker", w, "pinned", pinned)
}

// drain frees blocks other workers handed to w.
func (r *run) drain(w int, pinned bool) {
	for {
		b, ok := r.inbox[w].Dequeue()
		if !ok {
			return
		}
		r.free(w, b, pinned)
	}
}

func (r *run) free(w int, b api.Block, pinned bool) {
	var err error
	if pinned {
		err = r.alloc.Free(b)
	} else {
		err = r.alloc.FreeOn(w, b)
	}
	if err != nil {
		r.fail(fmt.Errorf("stress: worker %d free %s: %w", w, b, err))
		return
	}
	r.frees.Add(1)
}

func (r *run) fail(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

func diffStats(after, before api.Stats) api.Stats {
	return api.Stats{
		Allocs:     after.Allocs - before.Allocs,
		Frees:      after.Frees - before.Frees,
		Splits:     after.Splits - before.Splits,
		Merges:     after.Merges - before.Merges,
		Steals:     after.Steals - before.Steals,
		StalePops:  after.StalePops - before.StalePops,
		OutOfMem:   after.OutOfMem - before.OutOfMem,
		AllocPages: after.AllocPages,
	}
}
