// File: network/sink_stage.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// SinkStage is the canonical Network Sink: a pipeline.Stage that ships
// every buffer it receives to a remote NesPartition over a Channel
// (spec §2 "one canonical sink is the Network Sink"; §9 "Dynamic
// dispatch on stages... NetworkSinkStage").

package network

import (
	"context"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/partition"
	"github.com/nebulastream/streamcore/pipeline"
)

// SinkStage dials target once in Setup and reuses the Channel for every
// Execute call; TearDown sends EndOfStream and tears down the
// connection (spec §4.4 "Channel lifecycle (producer side)").
type SinkStage struct {
	target    NodeLocation
	partition partition.NesPartition
	tupleSize uint32
	cfg       ChannelConfig

	ch *Channel
}

// NewSinkStage builds a SinkStage addressed to partition p on target.
// tupleSize is the fixed per-tuple byte width the receiving side's
// memory layout expects (spec §4.4 "Data payload is... prefixed by
// {tupleCount, tupleSize, watermark}"); pass 0 for schemaless payloads.
func NewSinkStage(target NodeLocation, p partition.NesPartition, tupleSize uint32, cfg ChannelConfig) *SinkStage {
	return &SinkStage{target: target, partition: p, tupleSize: tupleSize, cfg: cfg}
}

// Setup dials target and performs the registration handshake, retrying
// until the remote NetworkSource has registered as a consumer or the
// retry budget is exhausted.
func (s *SinkStage) Setup() error {
	ch, err := Dial(context.Background(), s.target, s.partition, s.cfg)
	if err != nil {
		return err
	}
	s.ch = ch
	return nil
}

// Execute forwards buf's contents as a Data frame. Backpressure from a
// slow consumer propagates here: SendBuffer blocks on the channel's
// bounded send queue (spec §4.7 "Backpressure").
func (s *SinkStage) Execute(buf *buffer.Buffer, ctx pipeline.Context, wc *pipeline.WorkerContext) pipeline.ExecutionResult {
	if err := s.ch.SendBuffer(context.Background(), uint32(buf.TupleCount()), s.tupleSize, buf.Watermark(), buf.Bytes()); err != nil {
		return pipeline.Error(err)
	}
	return pipeline.Ok()
}

// TearDown sends EndOfStream and closes the underlying connection
// (spec §4.8 "Sinks convert it to a wire EOS message").
func (s *SinkStage) TearDown() error {
	if s.ch == nil {
		return nil
	}
	return s.ch.Close()
}
