// File: pipeline/stage.go
// Package pipeline defines the compiled-operator ABI and the executable
// query plan that wires stages, sources, and sinks into a schedulable
// DAG (spec §4.5, §4.6).
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
package pipeline

import "github.com/nebulastream/streamcore/buffer"

// Status is the outcome of one Stage.Execute call.
type Status int

const (
	StatusOk Status = iota
	StatusFinished
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFinished:
		return "Finished"
	case StatusError:
		return "Error"
	default:
		return "Ok"
	}
}

// ExecutionResult is the return value of Stage.Execute (spec §4.5).
type ExecutionResult struct {
	Status Status
	Err    error
}

// Ok signals normal completion: the stage may run again on the next task.
func Ok() ExecutionResult { return ExecutionResult{Status: StatusOk} }

// Finished signals the stage has no further work for this SubPlan's
// lifetime (e.g. it observed a terminal condition independent of EOS).
func Finished() ExecutionResult { return ExecutionResult{Status: StatusFinished} }

// Error signals a stage-level fault. The owning SubPlan transitions to
// ErrorState and its inflight tasks are drained; other SubPlans are
// unaffected (spec §4.5 "Error handling").
func Error(err error) ExecutionResult { return ExecutionResult{Status: StatusError, Err: err} }

// WorkerContext is the per-invocation context handed to a stage,
// identifying which worker thread (and therefore which thread-local
// buffer pool and NUMA node) is executing it.
type WorkerContext struct {
	WorkerID int
	NUMANode int
}

// Stage is the single contract every compiled operator implements:
// filter, map, projection, window scan, external kernel, or network
// sink (spec §4.5). A stage must not retain the input buffer past
// return; any state it needs to keep must be copied out.
type Stage interface {
	// Setup is called once, in pipeline order, when the owning plan
	// transitions Created → Deployed.
	Setup() error
	// Execute processes one buffer. buf.TupleCount() > 0 unless the
	// stage opted into empty buffers via AcceptsEmptyBuffers.
	Execute(buf *buffer.Buffer, ctx Context, wc *WorkerContext) ExecutionResult
	// TearDown is called once when the owning plan transitions to Destroyed.
	TearDown() error
}

// EmptyBufferAware is implemented by stages that want to receive
// zero-tuple buffers, used to propagate watermarks without data
// (spec §4.5 "Preconditions").
type EmptyBufferAware interface {
	AcceptsEmptyBuffers() bool
}
