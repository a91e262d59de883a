// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fake CPU source and backends for testing.

package fake

import (
	"sync/atomic"

	"github.com/momentics/lfbuddy/api"
)

var _ api.CPU = (*CPU)(nil)

// CPU is a controllable api.CPU. Tests move the "current" CPU with Set to
// drive allocations and frees through chosen per-CPU lists.
type CPU struct {
	id atomic.Int64
	n  int
}

// NewCPU creates a fake source reporting n CPUs, starting on CPU 0.
func NewCPU(n int) *CPU {
	if n < 1 {
		n = 1
	}
	return &CPU{n: n}
}

// Set moves the caller to CPU id.
func (c *CPU) Set(id int) { c.id.Store(int64(id)) }

func (c *CPU) Current() int { return int(c.id.Load()) }
func (c *CPU) Count() int   { return c.n }
