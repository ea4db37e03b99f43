// File: pipeline/context.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package pipeline

import "github.com/nebulastream/streamcore/buffer"

// PipelineID identifies one Pipeline within a Plan.
type PipelineID uint64

// Context is the execution-time handle a Stage uses to emit output
// buffers to its successor pipelines (spec §4.5 "Postconditions"). It is
// implemented by the scheduler so that emitted buffers become new tasks
// on the emitting worker's local deque, without pipeline depending on
// the scheduler package.
type Context interface {
	// EmitBuffer hands buf to every successor of the currently executing
	// pipeline, retaining a reference per successor, and schedules each
	// as a new task.
	EmitBuffer(buf *buffer.Buffer, wc *WorkerContext)
}

// Pipeline is a single compiled stage plus its successor edges (spec §3
// "Pipeline"). A pipeline may have multiple predecessors (union) and
// multiple successors (fan-out); only the successor list is modeled
// here, predecessors are implicit in who references this ID.
type Pipeline struct {
	ID         PipelineID
	Stage      Stage
	Successors []PipelineID
}

// AcceptsEmptyBuffers reports whether this pipeline's stage opted into
// zero-tuple invocations (spec §4.5 "Preconditions").
func (p *Pipeline) AcceptsEmptyBuffers() bool {
	aware, ok := p.Stage.(EmptyBufferAware)
	return ok && aware.AcceptsEmptyBuffers()
}
