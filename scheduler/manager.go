// File: scheduler/manager.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package scheduler

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/pipeline"
)

// Affinity configures CPU/NUMA pinning for the Query Manager's worker
// threads (spec §6 "numaAware, workerPinList"). An empty WorkerPinList
// or NUMAAware=false leaves every worker unpinned.
type Affinity struct {
	NUMAAware     bool
	WorkerPinList []int
}

// Manager is the Query Manager: a fixed-size pool of worker threads
// dispatching Tasks across per-worker deques, draining a shared
// reconfiguration queue ahead of data tasks on every loop iteration
// (spec §4.7). Idle workers park on reconfigCond rather than busy-polling
// (spec §5 "Workers block on a condition variable when idle"); the same
// lock guards the reconfiguration queue and every enqueue, so no wakeup
// is lost between a worker's last look and its call to Wait.
type Manager struct {
	globalPool *buffer.Manager
	deques     []*deque
	workers    []*worker

	reconfigMu   sync.Mutex
	reconfigCond *sync.Cond
	reconfigQ    *queue.Queue

	plansMu sync.RWMutex
	plans   map[uint64]*pipeline.Plan

	statsMu sync.RWMutex
	stats   map[uint64]*QueryStatistics

	stopCh chan struct{}
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewManager builds a Query Manager with numWorkers worker threads,
// sampling globalPool's buffer availability for statistics. affinity
// assigns each worker i a CPU via WorkerPinList[i % len(WorkerPinList)];
// with an empty list, or NUMAAware=false, every worker runs unpinned.
func NewManager(numWorkers int, globalPool *buffer.Manager, affinity Affinity) *Manager {
	if numWorkers < 1 {
		numWorkers = 1
	}
	m := &Manager{
		globalPool: globalPool,
		deques:     make([]*deque, numWorkers),
		plans:      make(map[uint64]*pipeline.Plan),
		stats:      make(map[uint64]*QueryStatistics),
		reconfigQ:  queue.New(),
		stopCh:     make(chan struct{}),
		log:        logrus.WithField("component", "scheduler.Manager"),
	}
	m.reconfigCond = sync.NewCond(&m.reconfigMu)
	m.workers = make([]*worker, numWorkers)
	numaNode := -1
	if affinity.NUMAAware {
		numaNode = 0
	}
	for i := 0; i < numWorkers; i++ {
		cpuID := -1
		if affinity.NUMAAware && len(affinity.WorkerPinList) > 0 {
			cpuID = affinity.WorkerPinList[i%len(affinity.WorkerPinList)]
		}
		m.deques[i] = newDeque()
		m.workers[i] = &worker{id: i, local: m.deques[i], manager: m, numaNode: numaNode, cpuID: cpuID}
	}
	return m
}

// Start launches the worker goroutines.
func (m *Manager) Start() {
	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w *worker) {
			defer m.wg.Done()
			w.run(m.stopCh)
		}(w)
	}
}

// Stop signals all workers to exit and waits for them to drain their
// current iteration. It does not cancel inflight stage execution.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.reconfigMu.Lock()
	m.reconfigCond.Broadcast()
	m.reconfigMu.Unlock()
	m.wg.Wait()
}

// RegisterPlan makes plan's pipelines schedulable.
func (m *Manager) RegisterPlan(plan *pipeline.Plan) {
	m.plansMu.Lock()
	m.plans[plan.SubPlanID] = plan
	m.plansMu.Unlock()
	m.getOrCreateStats(plan.QueryID)
}

// UnregisterPlan removes plan from the schedulable set. Call only after
// the plan has been fully drained (Stopped or ErrorState).
func (m *Manager) UnregisterPlan(subPlanID uint64) {
	m.plansMu.Lock()
	delete(m.plans, subPlanID)
	m.plansMu.Unlock()
}

func (m *Manager) plan(subPlanID uint64) (*pipeline.Plan, bool) {
	m.plansMu.RLock()
	defer m.plansMu.RUnlock()
	p, ok := m.plans[subPlanID]
	return p, ok
}

// Submit enqueues task onto a worker's local deque, chosen by a stable
// hash of (subPlanID, pipelineID) so repeated emissions to the same
// pipeline tend to land on the same worker (spec §4.7 locality).
func (m *Manager) Submit(task Task) {
	idx := int((task.SubPlanID*31 + uint64(task.PipelineID)) % uint64(len(m.deques)))
	m.enqueue(idx, task)
}

// enqueue pushes task onto deques[idx] and wakes any worker parked in
// next, holding reconfigMu across both so the push always
// happens-before the wakeup a waiter observes (spec §5 condition
// variable discipline). This is the sole path onto a worker's deque;
// taskContext.EmitBuffer uses it too (scheduler/context.go).
func (m *Manager) enqueue(idx int, task Task) {
	m.reconfigMu.Lock()
	m.deques[idx].pushBack(task)
	m.reconfigCond.Broadcast()
	m.reconfigMu.Unlock()
}

// EnqueueReconfiguration pushes a control message onto the shared
// higher-priority channel (spec §4.7 "Reconfiguration messages").
func (m *Manager) EnqueueReconfiguration(msg pipeline.ReconfigurationMessage) {
	m.reconfigMu.Lock()
	m.reconfigQ.Add(msg)
	m.reconfigCond.Broadcast()
	m.reconfigMu.Unlock()
}

// next returns the next unit of work for w: a reconfiguration message
// (checked first, every iteration), else a task popped from w's own
// deque, else a task stolen from a peer. If none is ready it parks on
// reconfigCond until enqueue or EnqueueReconfiguration signals, or
// stopCh closes, re-checking all three sources under the same lock on
// every wakeup (spec §4.7 "reconfiguration drained before data tasks";
// §5 "Workers block... (condition variable)").
func (m *Manager) next(w *worker, stopCh <-chan struct{}) (pipeline.ReconfigurationMessage, bool, Task, bool) {
	m.reconfigMu.Lock()
	defer m.reconfigMu.Unlock()
	for {
		if m.reconfigQ.Length() > 0 {
			return m.reconfigQ.Remove().(pipeline.ReconfigurationMessage), true, Task{}, false
		}
		if task, ok := w.local.popBack(); ok {
			return pipeline.ReconfigurationMessage{}, false, task, true
		}
		if task, ok := stealFrom(m.deques, w.id); ok {
			return pipeline.ReconfigurationMessage{}, false, task, true
		}
		select {
		case <-stopCh:
			return pipeline.ReconfigurationMessage{}, false, Task{}, false
		default:
		}
		m.reconfigCond.Wait()
	}
}

func (m *Manager) handleReconfiguration(msg pipeline.ReconfigurationMessage) {
	plan, ok := m.plan(msg.SubPlanID)
	if !ok {
		return
	}
	switch msg.Kind {
	case pipeline.HardEndOfStream, pipeline.SoftEndOfStream:
		m.log.WithFields(logrus.Fields{"subPlanId": msg.SubPlanID, "kind": msg.Kind}).Debug("draining subplan on end-of-stream")
		_ = plan.Stop(msg.Kind == pipeline.HardEndOfStream)
	case pipeline.Destroy:
		_ = plan.Destroy()
		m.UnregisterPlan(msg.SubPlanID)
	case pipeline.Initialize:
		// no worker-local state to prime in this implementation; the
		// message still exists so callers generalizing this scheduler
		// have a hook point ahead of the first data task.
	}
}

func (m *Manager) getOrCreateStats(queryID uint64) *QueryStatistics {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	s, ok := m.stats[queryID]
	if !ok {
		s = &QueryStatistics{}
		m.stats[queryID] = s
	}
	return s
}

func (m *Manager) statsFor(queryID uint64) (*QueryStatistics, bool) {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	s, ok := m.stats[queryID]
	return s, ok
}

// Statistics returns a snapshot of queryID's counters, or false if no
// plan of the query was ever registered. Counters are kept after
// UnregisterPlan.
func (m *Manager) Statistics(queryID uint64) (StatisticsSnapshot, bool) {
	s, ok := m.statsFor(queryID)
	if !ok {
		return StatisticsSnapshot{}, false
	}
	return s.Snapshot(), true
}
