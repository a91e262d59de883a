// File: buddy/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocator configuration and functional options.

package buddy

import (
	"io"
	"log/slog"

	"github.com/momentics/lfbuddy/api"
)

// MaxPages bounds the page count so that every tree node index fits the
// 32-bit index field of a free-list head.
const MaxPages = 1 << 30

// Config holds parameters fixed for the allocator's lifetime.
type Config struct {
	PageSize int          // bytes per page, power of two
	CPUs     int          // per-CPU list sets; 0 asks the CPU source
	CPU      api.CPU      // CPU identity source; nil selects cpuid.Default()
	Stealing bool         // search other CPUs' lists before reporting out of memory
	Logger   *slog.Logger // structured logger; discards by default
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		PageSize: api.DefaultPageSize,
		CPUs:     0,
		CPU:      nil,
		Stealing: true,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option customizes allocator initialization.
type Option func(*Config)

// WithPageSize sets the page size in bytes.
func WithPageSize(n int) Option {
	return func(c *Config) {
		c.PageSize = n
	}
}

// WithCPUs fixes the number of per-CPU free-list sets. CPU ids reported by
// the CPU source are reduced modulo n.
func WithCPUs(n int) Option {
	return func(c *Config) {
		c.CPUs = n
	}
}

// WithCPU sets the CPU identity source.
func WithCPU(cpu api.CPU) Option {
	return func(c *Config) {
		c.CPU = cpu
	}
}

// WithStealing toggles cross-CPU stealing on local exhaustion.
func WithStealing(on bool) Option {
	return func(c *Config) {
		c.Stealing = on
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
