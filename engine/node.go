// File: engine/node.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Node is the composition root. It constructs its managers in the fixed
// dependency order Buffer Manager → Partition Manager → Network Manager
// → Query Manager, so that any manager may depend on the ones before it
// but never after (spec §4.8, §9 "Design Notes").

package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/control"
	"github.com/nebulastream/streamcore/errs"
	"github.com/nebulastream/streamcore/internal/concurrency"
	"github.com/nebulastream/streamcore/network"
	"github.com/nebulastream/streamcore/partition"
	"github.com/nebulastream/streamcore/pipeline"
	"github.com/nebulastream/streamcore/scheduler"
)

// statsSyncInterval is how often Node samples buffer pool occupancy and
// per-query statistics into Metrics and mirrors them onto Prometheus
// (spec §4.8 "statistics are read by the Node Engine at measurement
// intervals").
const statsSyncInterval = time.Second

// queryEntry tracks everything the Node needs to tear a query down:
// its subplans and the cancel functions for its running sources.
type queryEntry struct {
	plans       []*pipeline.Plan
	sourceStops []func()
}

// Node is the top-level composition root: one per worker process (spec
// §4.8 "Responsibility"). Queries are isolated from one another;
// stopping or erroring one never blocks or corrupts another.
type Node struct {
	cfg Config

	bufferMgr  *buffer.Manager
	partitions *partition.Registry
	netServer  *network.Server
	sched      *scheduler.Manager

	ConfigStore *control.ConfigStore
	Metrics     *control.MetricsRegistry
	Debug       *control.DebugProbes

	promRegistry *prometheus.Registry
	promExporter *control.PrometheusExporter

	mu      sync.Mutex
	queries map[uint64]*queryEntry
	started bool

	sourceSeq     atomic.Int64
	metricsStopCh chan struct{}
	metricsWg     sync.WaitGroup

	log *logrus.Entry
}

// NewNode constructs a Node's managers in fixed dependency order but
// does not yet start accepting connections or scheduling tasks; call
// Start for that.
func NewNode(cfg Config) (*Node, error) {
	numaNode := -1
	if cfg.NumaAware {
		numaNode = 0
	}
	n := &Node{
		cfg:         cfg,
		bufferMgr:   buffer.NewManager(buffer.PoolConfig{BufferSize: cfg.BufferSizeInBytes, NumberOfBuffers: cfg.NumberOfBuffersInGlobalBufferManager, NUMANode: numaNode}),
		partitions:  partition.NewRegistry(),
		ConfigStore: control.NewConfigStore(),
		Metrics:     control.NewMetricsRegistry(),
		Debug:       control.NewDebugProbes(),
		queries:       make(map[uint64]*queryEntry),
		metricsStopCh: make(chan struct{}),
		log:           logrus.WithField("component", "engine.Node"),
	}
	n.promRegistry = prometheus.NewRegistry()
	n.promExporter = control.NewPrometheusExporter(n.Metrics, n.promRegistry, "streamcore")

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.DataPort)
	srv, err := network.NewServer(addr, n.partitions, n)
	if err != nil {
		return nil, fmt.Errorf("bind data port: %w", err)
	}
	n.netServer = srv
	n.sched = scheduler.NewManager(cfg.NumWorkerThreads, n.bufferMgr, scheduler.Affinity{
		NUMAAware:     cfg.NumaAware,
		WorkerPinList: cfg.WorkerPinList,
	})

	control.RegisterBufferPoolProbe(n.Debug, "bufferPool", n.bufferMgr)
	control.RegisterPartitionProbe(n.Debug, "partitions", n.partitions)
	control.RegisterPlatformProbes(n.Debug)
	n.Debug.RegisterProbe("activeQueries", func() any {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.queries)
	})

	n.ConfigStore.SetAffinity(control.AffinityConfig{
		NUMAAware:     cfg.NumaAware,
		WorkerPinList: cfg.WorkerPinList,
		SourcePinList: cfg.SourcePinList,
	})
	return n, nil
}

// DataAddr returns the bound data-plane address, useful when DataPort
// was configured as 0.
func (n *Node) DataAddr() string { return n.netServer.Addr().String() }

// BufferManager returns the Node's global buffer pool, for sources and
// sinks constructed outside the engine package (e.g. by a query
// compiler) that need to acquire buffers.
func (n *Node) BufferManager() *buffer.Manager { return n.bufferMgr }

// Partitions returns the Node's partition registry, for network sources
// that need to register as consumers before a remote producer connects.
func (n *Node) Partitions() *partition.Registry { return n.partitions }

// PrometheusRegistry returns the registry holding this Node's exported
// gauges, for callers that expose a /metrics scrape endpoint.
func (n *Node) PrometheusRegistry() *prometheus.Registry { return n.promRegistry }

// Start brings the composed managers online: the network reactor and
// the Query Manager's worker pool.
func (n *Node) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go n.netServer.Serve()
	n.sched.Start()

	n.metricsWg.Add(1)
	go n.syncMetricsLoop()
}

// syncMetricsLoop samples buffer pool occupancy and every active
// query's statistics into Metrics, then mirrors the whole snapshot onto
// the Prometheus gauges, every statsSyncInterval until Stop.
func (n *Node) syncMetricsLoop() {
	defer n.metricsWg.Done()
	ticker := time.NewTicker(statsSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.metricsStopCh:
			return
		case <-ticker.C:
			n.sampleStatistics()
		}
	}
}

func (n *Node) sampleStatistics() {
	n.Metrics.RecordBufferPoolStats(n.bufferMgr.Stats())

	n.mu.Lock()
	queryIDs := make([]uint64, 0, len(n.queries))
	for id := range n.queries {
		queryIDs = append(queryIDs, id)
	}
	n.mu.Unlock()

	for _, id := range queryIDs {
		if snap, ok := n.sched.Statistics(id); ok {
			n.Metrics.RecordQueryStatistics(id, snap)
		}
	}

	n.promExporter.Sync()
}

// RegisterQueryInNodeEngine validates and deploys plans (one per
// subplan) under queryID, transitioning each Created → Deployed
// (spec §4.8 "registerQueryInNodeEngine").
func (n *Node) RegisterQueryInNodeEngine(queryID uint64, plans []*pipeline.Plan) error {
	if len(plans) == 0 {
		return errs.New(errs.CodeInvalidArgument, "a query must have at least one subplan")
	}
	for _, p := range plans {
		if err := p.Setup(); err != nil {
			return fmt.Errorf("setup subplan %d: %w", p.SubPlanID, err)
		}
		n.sched.RegisterPlan(p)
	}

	n.mu.Lock()
	n.queries[queryID] = &queryEntry{plans: plans}
	n.mu.Unlock()
	n.log.WithField("queryId", queryID).Info("query registered")
	return nil
}

// StartQuery transitions every subplan of queryID Deployed → Running and
// starts its sources (spec §4.8 "startQuery").
func (n *Node) StartQuery(queryID uint64) error {
	n.mu.Lock()
	entry, ok := n.queries[queryID]
	n.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeInvalidArgument, "unknown query").WithContext("queryId", queryID)
	}

	for _, p := range entry.plans {
		if err := p.Start(); err != nil {
			return fmt.Errorf("start subplan %d: %w", p.SubPlanID, err)
		}
		for _, src := range p.Sources {
			stop := n.runSource(p, src)
			n.mu.Lock()
			entry.sourceStops = append(entry.sourceStops, stop)
			n.mu.Unlock()
		}
	}
	n.log.WithField("queryId", queryID).Info("query started")
	return nil
}

// runSource launches src on its own goroutine, feeding every buffer it
// produces into the Query Manager as a task targeting plan's first
// pipeline (the DAG's entry point). It returns a function that requests
// the source to stop. When the Node is configured NUMA-aware, the
// goroutine pins its OS thread to the next entry in SourcePinList
// (spec §6 "sourcePinList"), cycling across successive sources.
func (n *Node) runSource(plan *pipeline.Plan, src pipeline.Source) func() {
	entryPipeline := plan.Pipelines[0].ID
	emit := func(buf *buffer.Buffer) {
		n.sched.Submit(scheduler.Task{Buffer: buf, PipelineID: entryPipeline, SubPlanID: plan.SubPlanID})
	}

	idx := int(n.sourceSeq.Add(1) - 1)
	affinity := n.ConfigStore.Affinity()
	cpuID := affinity.PinForSource(idx)
	numaNode := -1
	if cpuID >= 0 {
		numaNode = 0
	}

	go func() {
		if numaNode >= 0 || cpuID >= 0 {
			if err := concurrency.PinCurrentThread(numaNode, cpuID); err != nil {
				n.log.WithError(err).WithField("subPlanId", plan.SubPlanID).Warn("source thread pinning failed")
			} else {
				defer concurrency.UnpinCurrentThread()
			}
		}
		if err := src.Start(emit); err != nil {
			n.log.WithError(err).WithField("subPlanId", plan.SubPlanID).Warn("source terminated with error")
		}
	}()
	return src.Stop
}

// StopQuery stops the query's sources and transitions each Running
// subplan to Stopped (spec §4.8 "stopQuery"). hard is passed to
// pipeline.Plan.Stop, which ignores it: both modes take the same path,
// and tasks already queued for the query still run in either mode.
func (n *Node) StopQuery(queryID uint64, hard bool) error {
	n.mu.Lock()
	entry, ok := n.queries[queryID]
	n.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeInvalidArgument, "unknown query").WithContext("queryId", queryID)
	}

	for _, stop := range entry.sourceStops {
		stop()
	}
	for _, p := range entry.plans {
		if p.State() == pipeline.Running {
			if err := p.Stop(hard); err != nil {
				return err
			}
		}
	}
	n.log.WithFields(logrus.Fields{"queryId": queryID, "hard": hard}).Info("query stopped")
	return nil
}

// UndeployQuery transitions Stopped → Destroyed and releases the
// query's resources (spec §4.8 "undeployQuery").
func (n *Node) UndeployQuery(queryID uint64) error {
	n.mu.Lock()
	entry, ok := n.queries[queryID]
	if ok {
		delete(n.queries, queryID)
	}
	n.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeInvalidArgument, "unknown query").WithContext("queryId", queryID)
	}

	for _, p := range entry.plans {
		if err := p.Destroy(); err != nil {
			return fmt.Errorf("destroy subplan %d: %w", p.SubPlanID, err)
		}
		n.sched.UnregisterPlan(p.SubPlanID)
	}
	n.log.WithField("queryId", queryID).Info("query undeployed")
	return nil
}

// Stop tears down all queries then all managers in reverse dependency
// order (Query Manager → Network Manager → Partition Manager → Buffer
// Manager). Idempotent: calls after the first return nil. Each query is
// hard-stopped and undeployed without waiting for its queued tasks, but
// Stop then waits for every worker's current stage execution to return,
// with no timeout (spec §4.8 "Invariants").
func (n *Node) Stop() error {
	n.mu.Lock()
	select {
	case <-n.metricsStopCh:
		n.mu.Unlock()
		return nil
	default:
	}
	close(n.metricsStopCh)
	queryIDs := make([]uint64, 0, len(n.queries))
	for id := range n.queries {
		queryIDs = append(queryIDs, id)
	}
	n.mu.Unlock()

	for _, id := range queryIDs {
		_ = n.StopQuery(id, true)
		_ = n.UndeployQuery(id)
	}

	n.metricsWg.Wait()

	n.sched.Stop()
	return n.netServer.Close()
}

// Statistics returns the scheduler's current counters for queryID.
func (n *Node) Statistics(queryID uint64) (scheduler.StatisticsSnapshot, bool) {
	return n.sched.Statistics(queryID)
}
