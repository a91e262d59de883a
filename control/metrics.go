// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for allocator monitoring.
// Exposes counters in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"

	"github.com/momentics/lfbuddy/api"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// PublishStats stores every allocator counter under prefix.
func (mr *MetricsRegistry) PublishStats(prefix string, s api.Stats) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	for k, v := range statsMap(s) {
		mr.metrics[prefix+k] = v
	}
	mr.updated = time.Now()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last write, zero if none.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

func statsMap(s api.Stats) map[string]any {
	return map[string]any{
		"allocs":      s.Allocs,
		"frees":       s.Frees,
		"splits":      s.Splits,
		"merges":      s.Merges,
		"steals":      s.Steals,
		"stale_pops":  s.StalePops,
		"out_of_mem":  s.OutOfMem,
		"alloc_pages": s.AllocPages,
	}
}
