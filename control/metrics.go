// control/metrics.go
// Author: nebulastream/streamcore contributors
//
// Runtime metrics collector for system-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration,
// plus typed recorders for the two statistics sources a Node Engine
// samples at measurement intervals: buffer pool occupancy and
// per-query counters (spec §4.8 "statistics are read by the Node
// Engine at measurement intervals").

package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/scheduler"
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

// RecordBufferPoolStats sets the bufferPool.* keys from a pool
// occupancy snapshot.
func (mr *MetricsRegistry) RecordBufferPoolStats(stats buffer.Stats) {
	mr.Set("bufferPool.capacity", stats.Capacity)
	mr.Set("bufferPool.available", stats.Available)
	mr.Set("bufferPool.outstanding", stats.Outstanding)
}

// RecordQueryStatistics sets the query.<id>.* keys from a scheduler
// statistics snapshot.
func (mr *MetricsRegistry) RecordQueryStatistics(queryID uint64, snap scheduler.StatisticsSnapshot) {
	prefix := fmt.Sprintf("query.%d.", queryID)
	mr.Set(prefix+"processedTuples", snap.ProcessedTuples)
	mr.Set(prefix+"processedBuffers", snap.ProcessedBuffers)
	mr.Set(prefix+"processedTasks", snap.ProcessedTasks)
	mr.Set(prefix+"latencySumMillis", snap.LatencySumMillis)
}
