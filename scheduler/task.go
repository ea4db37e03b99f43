// File: scheduler/task.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package scheduler

import (
	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/pipeline"
)

// Task is the scheduling unit: a buffer destined for one pipeline within
// one query subplan. Tasks carry no priority field. A worker takes the
// newest task from the back of its own deque (LIFO), and idle workers
// steal the oldest task from the front of a peer's deque (see deque).
type Task struct {
	Buffer     *buffer.Buffer
	PipelineID pipeline.PipelineID
	SubPlanID  uint64
}
