// File: network/source_stage.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// SourceStage is the canonical Network Source: a pipeline.Source that
// registers as the consumer for a NesPartition and turns each arriving
// wire frame into a tuple buffer (spec §8 scenario 5 "Node B hosts a
// NetworkSource on that partition"; §9 "NetworkSinkStage" counterpart).

package network

import (
	"sync"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/partition"
	"github.com/nebulastream/streamcore/pipeline"
)

// SourceStage draws buffers from pool to hold arriving payloads and
// registers/unregisters itself as a consumer of partition p on
// registry across Start/Stop (spec §4.3 "registry is the rendezvous...
// between a NetworkSource (consumer) and arriving wire messages").
type SourceStage struct {
	registry  *partition.Registry
	pool      *buffer.Manager
	partition partition.NesPartition

	mu      sync.Mutex
	stopped bool
}

// NewSourceStage builds a SourceStage that will feed buffers drawn from
// pool whenever a frame for p arrives at registry.
func NewSourceStage(registry *partition.Registry, pool *buffer.Manager, p partition.NesPartition) *SourceStage {
	return &SourceStage{registry: registry, pool: pool, partition: p}
}

// Mode reports this source as rate-driven: it emits whenever the
// network delivers, not on a fixed interval.
func (s *SourceStage) Mode() pipeline.SourceMode { return pipeline.SourceModeIngestionRate }

// Start registers the partition consumer and returns immediately; the
// emitter callback keeps running (invoked from the network receiver's
// connection goroutine) until Stop unregisters it.
func (s *SourceStage) Start(emit func(buf *buffer.Buffer)) error {
	s.registry.RegisterConsumer(s.partition, func(payload []byte, tupleCount uint32, watermark int64) {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		buf, ok := s.pool.GetBufferNonBlocking()
		if !ok {
			return // pool exhausted: drop rather than block the receiver goroutine
		}
		copy(buf.Bytes(), payload)
		buf.SetTupleCount(uint64(tupleCount))
		buf.SetWatermark(watermark)
		emit(buf)
	})
	return nil
}

// Stop unregisters the partition consumer, transitioning it toward
// Deleted once every other registrant has also unregistered (spec
// §4.3 "ConsumerState... Registered → Deleted").
func (s *SourceStage) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.registry.UnregisterConsumer(s.partition)
}
