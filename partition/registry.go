// File: partition/registry.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Registry shards its map across a fixed number of reader-biased locks,
// the same sharded-RWMutex pattern used across the pack for
// high-fanout, write-rare registries (spec §5 "Partition Manager
// registry: reader-biased lock; writes are rare").

package partition

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

type entry struct {
	state         ConsumerState
	consumerCount int
	producerCount int
	emitter       Emitter
}

type shard struct {
	mu      sync.RWMutex
	entries map[NesPartition]*entry
}

// Registry is the process-wide NesPartition → ConsumerState registry
// (spec §4.3). It is the rendezvous point between a NetworkSource
// (consumer) registering locally and arriving wire messages from remote
// NetworkSinks (producers).
type Registry struct {
	shards [shardCount]*shard
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[NesPartition]*entry)}
	}
	return r
}

func (r *Registry) shardFor(p NesPartition) *shard {
	h := fnv.New32a()
	h.Write([]byte(p.String()))
	return r.shards[h.Sum32()%shardCount]
}

// RegisterConsumer installs an emitter for partition and transitions
// Unregistered → Registered. Idempotent: repeated calls increment the
// reference counter but never regress the state (spec §4.3).
func (r *Registry) RegisterConsumer(p NesPartition, emitter Emitter) {
	s := r.shardFor(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[p]
	if !ok {
		e = &entry{}
		s.entries[p] = e
	}
	e.consumerCount++
	e.emitter = emitter
	if e.state == Unregistered {
		e.state = Registered
	}
}

// UnregisterConsumer decrements the consumer counter; at zero the
// partition transitions Registered → Deleted, which is terminal.
func (r *Registry) UnregisterConsumer(p NesPartition) {
	s := r.shardFor(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[p]
	if !ok {
		return
	}
	if e.consumerCount > 0 {
		e.consumerCount--
	}
	if e.consumerCount == 0 && e.state == Registered {
		e.state = Deleted
		e.emitter = nil
	}
}

// RegisterProducer increments the producer-side counter for p. Producer
// registration does not affect consumer state; it exists so the
// registry can report how many remote senders currently target a
// partition.
func (r *Registry) RegisterProducer(p NesPartition) {
	s := r.shardFor(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[p]
	if !ok {
		e = &entry{}
		s.entries[p] = e
	}
	e.producerCount++
}

// UnregisterProducer decrements the producer-side counter for p.
func (r *Registry) UnregisterProducer(p NesPartition) {
	s := r.shardFor(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[p]
	if !ok || e.producerCount == 0 {
		return
	}
	e.producerCount--
}

// IsConsumerRegistered is a lock-free-to-the-caller (read-locked) state
// lookup, the hot path hit once per arriving wire frame (spec §4.4).
func (r *Registry) IsConsumerRegistered(p NesPartition) ConsumerState {
	s := r.shardFor(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[p]
	if !ok {
		return Unregistered
	}
	return e.state
}

// RegistrySnapshot is a point-in-time occupancy summary for control/debug
// exposure (spec §4.3 "Observability").
type RegistrySnapshot struct {
	Registered   int
	Unregistered int
	Deleted      int
}

// Snapshot counts partitions by state across every shard.
func (r *Registry) Snapshot() RegistrySnapshot {
	var snap RegistrySnapshot
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			switch e.state {
			case Registered:
				snap.Registered++
			case Unregistered:
				snap.Unregistered++
			case Deleted:
				snap.Deleted++
			}
		}
		s.mu.RUnlock()
	}
	return snap
}

// Dispatch looks up the emitter for a registered partition and invokes
// it. Returns false if the partition is not in the Registered state, in
// which case the caller (the network receiver) must reply with
// PartitionNotRegistered rather than buffer the frame (spec §4.4).
func (r *Registry) Dispatch(p NesPartition, payload []byte, tupleCount uint32, watermark int64) bool {
	s := r.shardFor(p)
	s.mu.RLock()
	e, ok := s.entries[p]
	s.mu.RUnlock()
	if !ok || e.state != Registered || e.emitter == nil {
		return false
	}
	e.emitter(payload, tupleCount, watermark)
	return true
}
