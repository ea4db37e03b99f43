package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/pipeline"
)

type countingStage struct {
	invocations atomic.Int64
	emitTo      []pipeline.PipelineID
	done        chan struct{}
}

func (s *countingStage) Setup() error    { return nil }
func (s *countingStage) TearDown() error { return nil }
func (s *countingStage) Execute(buf *buffer.Buffer, ctx pipeline.Context, wc *pipeline.WorkerContext) pipeline.ExecutionResult {
	s.invocations.Add(1)
	for range s.emitTo {
		ctx.EmitBuffer(buf, wc)
	}
	if s.done != nil {
		select {
		case s.done <- struct{}{}:
		default:
		}
	}
	return pipeline.Ok()
}

type errorStage struct{}

func (errorStage) Setup() error    { return nil }
func (errorStage) TearDown() error { return nil }
func (errorStage) Execute(buf *buffer.Buffer, ctx pipeline.Context, wc *pipeline.WorkerContext) pipeline.ExecutionResult {
	return pipeline.Error(assertErr)
}

var assertErr = &stageErr{"stage failed"}

type stageErr struct{ msg string }

func (e *stageErr) Error() string { return e.msg }

func newSingleStagePlan(queryID, subPlanID uint64, stage pipeline.Stage) *pipeline.Plan {
	pl := &pipeline.Pipeline{ID: 0, Stage: stage}
	return pipeline.NewPlan(queryID, subPlanID, []*pipeline.Pipeline{pl}, nil)
}

func testManager(t *testing.T, numWorkers int) (*Manager, *buffer.Manager) {
	t.Helper()
	pool := buffer.NewManager(buffer.PoolConfig{BufferSize: 64, NumberOfBuffers: 16, NUMANode: -1})
	m := NewManager(numWorkers, pool, Affinity{})
	m.Start()
	t.Cleanup(m.Stop)
	return m, pool
}

func TestManagerExecutesSubmittedTask(t *testing.T) {
	m, pool := testManager(t, 2)
	stage := &countingStage{done: make(chan struct{}, 1)}
	plan := newSingleStagePlan(1, 1, stage)
	plan.Setup()
	plan.Start()
	m.RegisterPlan(plan)

	buf, _ := pool.GetBufferNonBlocking()
	buf.SetTupleCount(1)
	m.Submit(Task{Buffer: buf, PipelineID: 0, SubPlanID: 1})

	select {
	case <-stage.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stage execution")
	}
	if stage.invocations.Load() != 1 {
		t.Fatalf("invocations = %d, want 1", stage.invocations.Load())
	}
}

func TestManagerEmitBufferSchedulesSuccessor(t *testing.T) {
	m, pool := testManager(t, 2)

	downstreamDone := make(chan struct{}, 1)
	downstream := &countingStage{done: downstreamDone}
	upstream := &countingStage{emitTo: []pipeline.PipelineID{1}}

	plan := pipeline.NewPlan(1, 1, []*pipeline.Pipeline{
		{ID: 0, Stage: upstream, Successors: []pipeline.PipelineID{1}},
		{ID: 1, Stage: downstream},
	}, nil)
	plan.Setup()
	plan.Start()
	m.RegisterPlan(plan)

	buf, _ := pool.GetBufferNonBlocking()
	buf.SetTupleCount(1)
	m.Submit(Task{Buffer: buf, PipelineID: 0, SubPlanID: 1})

	select {
	case <-downstreamDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for downstream pipeline to run")
	}
	if downstream.invocations.Load() != 1 {
		t.Fatalf("downstream invocations = %d, want 1", downstream.invocations.Load())
	}
}

func TestManagerStageErrorMarksPlanErrorState(t *testing.T) {
	m, pool := testManager(t, 1)
	plan := newSingleStagePlan(1, 1, errorStage{})
	plan.Setup()
	plan.Start()
	m.RegisterPlan(plan)

	buf, _ := pool.GetBufferNonBlocking()
	buf.SetTupleCount(1)
	m.Submit(Task{Buffer: buf, PipelineID: 0, SubPlanID: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if plan.State() == pipeline.ErrorState {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if plan.State() != pipeline.ErrorState {
		t.Fatalf("plan.State() = %v, want ErrorState", plan.State())
	}
	if plan.FirstError() != assertErr {
		t.Fatalf("plan.FirstError() = %v, want %v", plan.FirstError(), assertErr)
	}
}

func TestManagerWorkStealingDistributesWork(t *testing.T) {
	m, pool := testManager(t, 4)
	var total atomic.Int64
	var wg sync.WaitGroup

	stage := &stageFunc{fn: func() { total.Add(1); wg.Done() }}
	plan := newSingleStagePlan(1, 1, stage)
	plan.Setup()
	plan.Start()
	m.RegisterPlan(plan)

	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		buf, ok := pool.GetBufferNonBlocking()
		if !ok {
			buf, _ = pool.GetBufferBlocking(context.Background())
		}
		buf.SetTupleCount(1)
		m.Submit(Task{Buffer: buf, PipelineID: 0, SubPlanID: 1})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out: only processed %d of %d tasks", total.Load(), n)
	}
	if total.Load() != n {
		t.Fatalf("total = %d, want %d", total.Load(), n)
	}
}

type stageFunc struct {
	fn func()
}

func (s *stageFunc) Setup() error    { return nil }
func (s *stageFunc) TearDown() error { return nil }
func (s *stageFunc) Execute(buf *buffer.Buffer, ctx pipeline.Context, wc *pipeline.WorkerContext) pipeline.ExecutionResult {
	s.fn()
	return pipeline.Ok()
}

func TestHardEndOfStreamReconfigurationStopsPlan(t *testing.T) {
	m, pool := testManager(t, 1)
	stage := &countingStage{}
	plan := newSingleStagePlan(1, 1, stage)
	plan.Setup()
	plan.Start()
	m.RegisterPlan(plan)

	buf, _ := pool.GetBufferNonBlocking()
	buf.SetTupleCount(1)
	m.Submit(Task{Buffer: buf, PipelineID: 0, SubPlanID: 1})
	m.EnqueueReconfiguration(pipeline.ReconfigurationMessage{Kind: pipeline.HardEndOfStream, SubPlanID: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if plan.State() == pipeline.Stopped {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("plan.State() = %v, want Stopped after HardEndOfStream reconfiguration", plan.State())
}

func TestNewManagerAssignsWorkerPinListRoundRobin(t *testing.T) {
	pool := buffer.NewManager(buffer.PoolConfig{BufferSize: 64, NumberOfBuffers: 16, NUMANode: -1})
	m := NewManager(3, pool, Affinity{NUMAAware: true, WorkerPinList: []int{4, 7}})

	want := []int{4, 7, 4}
	for i, w := range m.workers {
		if w.cpuID != want[i] {
			t.Fatalf("workers[%d].cpuID = %d, want %d", i, w.cpuID, want[i])
		}
		if w.numaNode != 0 {
			t.Fatalf("workers[%d].numaNode = %d, want 0", i, w.numaNode)
		}
	}
}

func TestNewManagerLeavesWorkersUnpinnedWithoutAffinity(t *testing.T) {
	pool := buffer.NewManager(buffer.PoolConfig{BufferSize: 64, NumberOfBuffers: 16, NUMANode: -1})
	m := NewManager(2, pool, Affinity{})

	for i, w := range m.workers {
		if w.cpuID != -1 || w.numaNode != -1 {
			t.Fatalf("workers[%d] = {cpuID: %d, numaNode: %d}, want both -1 when unpinned", i, w.cpuID, w.numaNode)
		}
	}
}
