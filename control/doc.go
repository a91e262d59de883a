// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for allocators.
//
// Provides concurrent-safe state handling primitives including:
//   - A metrics registry fed from allocator counters
//   - Named debug probes evaluated on demand
//   - Allocator and platform probe sets
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
