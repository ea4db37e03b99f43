package engine

import (
	"testing"
	"time"

	"github.com/nebulastream/streamcore/pipeline"
)

// TestNodeSamplesStatisticsIntoMetricsAndPrometheus verifies that a
// running Node mirrors buffer pool occupancy and query statistics onto
// both its MetricsRegistry and its Prometheus exporter (spec §4.8
// "statistics are read by the Node Engine at measurement intervals").
func TestNodeSamplesStatisticsIntoMetricsAndPrometheus(t *testing.T) {
	n, err := NewNode(NewConfig(WithWorkerThreads(1)))
	if err != nil {
		t.Fatalf("NewNode() error = %v", err)
	}
	n.Start()
	t.Cleanup(func() { n.Stop() })

	sink := &collectingStage{done: make(chan struct{}), want: 1}
	plan := pipeline.NewPlan(7, 7,
		[]*pipeline.Pipeline{{ID: 0, Stage: sink}},
		[]pipeline.Source{&generatorSource{pool: n.BufferManager(), count: 1}},
	)
	if err := n.RegisterQueryInNodeEngine(7, []*pipeline.Plan{plan}); err != nil {
		t.Fatalf("RegisterQueryInNodeEngine() error = %v", err)
	}
	if err := n.StartQuery(7); err != nil {
		t.Fatalf("StartQuery() error = %v", err)
	}

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for query 7's single tuple to be processed")
	}

	n.sampleStatistics()

	snap := n.Metrics.GetSnapshot()
	if _, ok := snap["bufferPool.capacity"]; !ok {
		t.Fatalf("Metrics snapshot missing bufferPool.capacity: %v", snap)
	}
	if _, ok := snap["query.7.processedTasks"]; !ok {
		t.Fatalf("Metrics snapshot missing query.7.processedTasks: %v", snap)
	}

	families, err := n.PrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, fam := range families {
		if fam.GetName() == "streamcore_query_statistic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Prometheus registry missing streamcore_query_statistic family, got %d families", len(families))
	}
}
