// File: network/listener.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package network

import "github.com/nebulastream/streamcore/partition"

// Listener receives callbacks from the receiver reactor as frames arrive.
// Splitting these four methods into a narrow interface (rather than a
// direct call back into the Node Engine) breaks the cyclic reference
// between the Network Manager and the Node Engine: the engine implements
// Listener and hands itself to the Server at construction, but the
// network package never imports the engine package.
type Listener interface {
	// OnDataBuffer is invoked once per Data frame dispatched to a
	// registered partition's consumer.
	OnDataBuffer(p partition.NesPartition, payload []byte, tupleCount uint32, watermark int64)
	// OnEndOfStream is invoked when an EndOfStream frame arrives for p.
	// EOS is strictly ordered after all Data frames on the same channel.
	OnEndOfStream(p partition.NesPartition)
	// OnServerError is invoked when the receiver reactor itself faults
	// (e.g. accept() failure), not tied to any single partition.
	OnServerError(err error)
	// OnChannelError reports a producer-side sendBuffer failure after
	// successful registration. Neither Server nor Channel calls it: a
	// failed Channel.SendBuffer returns its error to the caller instead
	// (spec §4.4 "Retry discipline").
	OnChannelError(p partition.NesPartition, err error)
}
