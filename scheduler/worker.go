// File: scheduler/worker.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package scheduler

import (
	"time"

	"github.com/nebulastream/streamcore/internal/concurrency"
	"github.com/nebulastream/streamcore/pipeline"
)

// worker owns one local deque and runs the scheduling loop: drain
// reconfiguration before data tasks, pop local work, else steal, else
// block on the manager's condition variable until woken (spec §4.7
// "Scheduling model"; §5 "Workers block... (condition variable)"). A
// worker with cpuID >= 0 pins its OS thread for its entire lifetime
// (spec §6 "workerPinList").
type worker struct {
	id       int
	local    *deque
	manager  *Manager
	numaNode int
	cpuID    int
}

func (w *worker) run(stopCh <-chan struct{}) {
	if w.numaNode >= 0 || w.cpuID >= 0 {
		if err := concurrency.PinCurrentThread(w.numaNode, w.cpuID); err != nil {
			w.manager.log.WithError(err).WithField("workerId", w.id).Warn("worker thread pinning failed")
		} else {
			defer concurrency.UnpinCurrentThread()
		}
	}
	for {
		msg, hasMsg, task, hasTask := w.manager.next(w, stopCh)
		switch {
		case hasMsg:
			w.manager.handleReconfiguration(msg)
		case hasTask:
			w.execute(task)
		default:
			return // stopCh closed and no work remained
		}
	}
}

func (w *worker) execute(task Task) {
	plan, ok := w.manager.plan(task.SubPlanID)
	if !ok {
		task.Buffer.Release()
		return
	}
	pl, ok := plan.Pipeline(task.PipelineID)
	if !ok {
		task.Buffer.Release()
		return
	}
	if task.Buffer.TupleCount() == 0 && !pl.AcceptsEmptyBuffers() {
		task.Buffer.Release()
		return
	}

	stats := w.manager.getOrCreateStats(plan.QueryID)
	wc := &pipeline.WorkerContext{WorkerID: w.id}
	ctx := &taskContext{manager: w.manager, subPlanID: task.SubPlanID, pipelineID: task.PipelineID, worker: w}

	start := time.Now()
	result := pl.Stage.Execute(task.Buffer, ctx, wc)
	latencyMillis := uint64(time.Since(start).Milliseconds())

	stats.recordTask()
	stats.recordBuffer(task.Buffer.TupleCount(), latencyMillis)
	if w.manager.globalPool != nil {
		poolStats := w.manager.globalPool.Stats()
		stats.sampleAvailability(uint64(poolStats.Available), 0)
	}

	switch result.Status {
	case pipeline.StatusError:
		plan.MarkError(result.Err)
	case pipeline.StatusFinished, pipeline.StatusOk:
		// no plan-level action; the stage itself decides whether
		// Finished means it will never be invoked again.
	}
	task.Buffer.Release()
}
