// File: scheduler/statistics.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// QueryStatistics holds the per-query counters the Node Engine samples
// at measurement intervals (spec §4.7 "Statistics"). Each counter is a
// single atomic per query, shared by every worker that executes one of
// the query's tasks; counters are not split per worker.

package scheduler

import "sync/atomic"

// QueryStatistics accumulates counters for one query. All fields are
// atomics, so workers update them and readers take a snapshot without a
// lock; concurrent workers contend on the same counters.
type QueryStatistics struct {
	processedTuples  atomic.Uint64
	processedBuffers atomic.Uint64
	processedTasks   atomic.Uint64
	latencySumMillis atomic.Uint64
	queueSizeSum     atomic.Uint64
	availableGlobal  atomic.Uint64
	availableFixed   atomic.Uint64
}

// StatisticsSnapshot is a point-in-time, read-only copy for export
// (spec §6 "Statistics export": all counters 64-bit, latency in ms).
type StatisticsSnapshot struct {
	ProcessedTuples          uint64
	ProcessedBuffers         uint64
	ProcessedTasks           uint64
	LatencySumMillis         uint64
	QueueSizeSum             uint64
	AvailableGlobalBufferSum uint64
	AvailableFixedBufferSum  uint64
}

func (s *QueryStatistics) recordBuffer(tupleCount uint64, latencyMillis uint64) {
	s.processedBuffers.Add(1)
	s.processedTuples.Add(tupleCount)
	s.latencySumMillis.Add(latencyMillis)
}

func (s *QueryStatistics) recordTask() {
	s.processedTasks.Add(1)
}

func (s *QueryStatistics) sampleQueueSize(n uint64) {
	s.queueSizeSum.Add(n)
}

func (s *QueryStatistics) sampleAvailability(global, fixed uint64) {
	s.availableGlobal.Add(global)
	s.availableFixed.Add(fixed)
}

// Snapshot returns the current counter values.
func (s *QueryStatistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		ProcessedTuples:          s.processedTuples.Load(),
		ProcessedBuffers:         s.processedBuffers.Load(),
		ProcessedTasks:           s.processedTasks.Load(),
		LatencySumMillis:         s.latencySumMillis.Load(),
		QueueSizeSum:             s.queueSizeSum.Load(),
		AvailableGlobalBufferSum: s.availableGlobal.Load(),
		AvailableFixedBufferSum:  s.availableFixed.Load(),
	}
}
