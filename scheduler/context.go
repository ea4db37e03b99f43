// File: scheduler/context.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package scheduler

import (
	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/pipeline"
)

// taskContext implements pipeline.Context for exactly one Stage.Execute
// invocation: it knows which pipeline just ran and schedules emitted
// buffers onto the successor pipelines of that one invocation.
type taskContext struct {
	manager    *Manager
	subPlanID  uint64
	pipelineID pipeline.PipelineID
	worker     *worker
}

// EmitBuffer hands buf to every successor of the currently executing
// pipeline, retaining a reference per successor, and pushes each as a
// new task onto the emitting worker's own local deque (spec §4.7
// "locality... successor tasks run on the same core as their
// predecessor when uncontended").
func (c *taskContext) EmitBuffer(buf *buffer.Buffer, wc *pipeline.WorkerContext) {
	plan, ok := c.manager.plan(c.subPlanID)
	if !ok {
		return
	}
	pl, ok := plan.Pipeline(c.pipelineID)
	if !ok {
		return
	}
	for _, succ := range pl.Successors {
		buf.Retain()
		c.manager.enqueue(c.worker.id, Task{Buffer: buf, PipelineID: succ, SubPlanID: c.subPlanID})
	}
	if stats, ok := c.manager.statsFor(plan.QueryID); ok {
		stats.sampleQueueSize(uint64(c.worker.local.len()))
	}
}
