// File: pipeline/source.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package pipeline

import "github.com/nebulastream/streamcore/buffer"

// SourceMode selects how a Source paces buffer emission (supplemented
// from the original gathering-mode configuration: a source may emit on a
// fixed wall-clock interval, at a target ingestion rate, or adapt its
// rate to downstream queue depth).
type SourceMode int

const (
	// SourceModeInterval emits at a fixed wall-clock period regardless
	// of downstream pressure, used for periodic/triggered generators.
	SourceModeInterval SourceMode = iota
	// SourceModeIngestionRate targets a fixed tuples-per-second rate.
	SourceModeIngestionRate
	// SourceModeAdaptive paces emission against observed queue depth,
	// slowing down as the Query Manager's queueSizeSum statistic grows.
	SourceModeAdaptive
)

// Source produces buffers from an external feed (network, file, or
// synthetic generator) and hands each to emit once filled. A Source
// typically draws from a FixedSizeBufferPool so that exhausting it
// applies backpressure all the way to the origin (spec §4.1, §4.7).
type Source interface {
	// Start begins production, invoking emit for each filled buffer,
	// until Stop is called or the underlying feed is exhausted. Start
	// may block until production ends or return once production is set
	// up (network.SourceStage does the latter); callers run it on its
	// own goroutine.
	Start(emit func(buf *buffer.Buffer)) error
	// Stop requests production to end; it does not block for drain.
	Stop()
	// Mode reports the pacing strategy this source was configured with.
	Mode() SourceMode
}
