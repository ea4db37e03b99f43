// File: engine/listener.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Node implements network.Listener so the receiver reactor can forward
// wire-level events into query lifecycle and observability without the
// network package importing engine (spec §4.8, see network.Listener's
// doc comment for the cycle this breaks).

package engine

import (
	"github.com/nebulastream/streamcore/partition"
	"github.com/nebulastream/streamcore/pipeline"
)

// OnDataBuffer is a secondary, metrics-only notification: the actual
// delivery to the registered consumer already happened via the
// Partition Manager inside network.Server before this is called.
func (n *Node) OnDataBuffer(p partition.NesPartition, payload []byte, tupleCount uint32, watermark int64) {
	n.Metrics.Set("network.lastDataPartition", p.String())
}

// OnEndOfStream queues a HardEndOfStream reconfiguration for the
// subplan owning p as soon as an EndOfStream frame arrives for p.
// EndOfStream frames are not counted across sources: for a subplan with
// several sources, the first one to finish queues the reconfiguration.
//
// NesPartition does not carry a subplan identifier distinct from
// QueryID in this implementation, so the two are treated as the same
// namespace; a deployment with multiple subplans per query would widen
// NesPartition or maintain an explicit partition→subplan index here.
func (n *Node) OnEndOfStream(p partition.NesPartition) {
	n.sched.EnqueueReconfiguration(pipeline.ReconfigurationMessage{
		Kind:      pipeline.HardEndOfStream,
		SubPlanID: p.QueryID,
	})
}

// OnServerError records that the receiver reactor itself faulted (e.g.
// accept() failure). It does not attempt to rebind; that is an
// operator action.
func (n *Node) OnServerError(err error) {
	n.Metrics.Set("network.serverError", err.Error())
	n.log.WithError(err).Error("network server error")
}

// OnChannelError records a producer-side send failure after successful
// registration. Recovery is not the channel's responsibility (spec
// §4.4 "Retry discipline"); the Node only observes and surfaces it.
func (n *Node) OnChannelError(p partition.NesPartition, err error) {
	n.Metrics.Set("network.lastChannelError", err.Error())
	n.log.WithError(err).WithField("partition", p.String()).Warn("channel error")
}
