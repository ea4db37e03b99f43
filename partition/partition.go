// File: partition/partition.go
// Package partition implements the process-wide registry mapping a
// NesPartition to its consumer/producer registration state (spec §4.3).
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
package partition

import "fmt"

// NesPartition is the network-level address of a tuple stream fragment:
// a four-tuple unique and stable for the lifetime of a query (spec §3).
type NesPartition struct {
	QueryID        uint64
	OperatorID     uint64
	PartitionID    uint64
	SubpartitionID uint64
}

// String renders the partition as its canonical dotted form, used both
// for logging and as the hash input that picks a Registry shard.
func (p NesPartition) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", p.QueryID, p.OperatorID, p.PartitionID, p.SubpartitionID)
}

// ConsumerState is the lifecycle state of one partition's consumer-side
// registration.
type ConsumerState int

const (
	Unregistered ConsumerState = iota
	Registered
	Deleted
)

func (s ConsumerState) String() string {
	switch s {
	case Registered:
		return "Registered"
	case Deleted:
		return "Deleted"
	default:
		return "Unregistered"
	}
}

// Emitter receives buffer payloads dispatched to a registered consumer.
// The network receiver invokes this directly from its I/O thread; the
// emitter implementation must not block on anything but buffer
// acquisition (spec §4.4).
type Emitter func(payload []byte, tupleCount uint32, watermark int64)
