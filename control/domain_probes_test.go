package control

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/partition"
	"github.com/nebulastream/streamcore/scheduler"
)

func TestPrometheusExporterSyncMirrorsNumericMetrics(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Set("processedTuples", uint64(5))
	mr.Set("lastError", "boom") // non-numeric: must be skipped, not panic

	reg := prometheus.NewRegistry()
	exporter := NewPrometheusExporter(mr, reg, "test")
	exporter.Sync()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, fam := range families {
		if fam.GetName() == "test_query_statistic" {
			found = true
			for _, m := range fam.GetMetric() {
				if m.GetGauge().GetValue() == 5 {
					return
				}
			}
		}
	}
	if !found {
		t.Fatalf("Gather() missing test_query_statistic family: %v", families)
	}
	t.Fatalf("test_query_statistic family present but processedTuples gauge value != 5")
}

func TestRegisterBufferPoolProbeReportsStats(t *testing.T) {
	mgr := buffer.NewManager(buffer.PoolConfig{BufferSize: 64, NumberOfBuffers: 4, NUMANode: -1})
	dp := NewDebugProbes()
	RegisterBufferPoolProbe(dp, "bufferPool", mgr)

	stats, ok := dp.DumpState()["bufferPool"].(buffer.Stats)
	if !ok {
		t.Fatalf("DumpState()[bufferPool] is not a buffer.Stats")
	}
	if stats.Capacity != 4 {
		t.Fatalf("stats.Capacity = %d, want 4", stats.Capacity)
	}
}

func TestRegisterPartitionProbeReportsSnapshot(t *testing.T) {
	reg := partition.NewRegistry()
	p := partition.NesPartition{QueryID: 1, OperatorID: 2, PartitionID: 3, SubpartitionID: 4}
	reg.RegisterConsumer(p, func([]byte, uint32, int64) {})

	dp := NewDebugProbes()
	RegisterPartitionProbe(dp, "partitions", reg)

	snap, ok := dp.DumpState()["partitions"].(partition.RegistrySnapshot)
	if !ok {
		t.Fatalf("DumpState()[partitions] is not a partition.RegistrySnapshot")
	}
	if snap.Registered != 1 {
		t.Fatalf("snap.Registered = %d, want 1", snap.Registered)
	}
}

func TestRegisterPlatformProbesReportsCapability(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	if _, ok := state["platform.cpus"]; !ok {
		t.Fatalf("DumpState() missing platform.cpus")
	}
	if _, ok := state["platform.cpuPinningSupported"].(bool); !ok {
		t.Fatalf("DumpState()[platform.cpuPinningSupported] is not a bool")
	}
}

func TestMetricsRegistryRecordBufferPoolStats(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.RecordBufferPoolStats(buffer.Stats{Capacity: 10, Available: 6, Outstanding: 4})

	snap := mr.GetSnapshot()
	if snap["bufferPool.capacity"] != 10 {
		t.Fatalf("bufferPool.capacity = %v, want 10", snap["bufferPool.capacity"])
	}
	if snap["bufferPool.available"] != 6 {
		t.Fatalf("bufferPool.available = %v, want 6", snap["bufferPool.available"])
	}
}

func TestMetricsRegistryRecordQueryStatistics(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.RecordQueryStatistics(42, scheduler.StatisticsSnapshot{ProcessedTuples: 7, ProcessedTasks: 3})

	snap := mr.GetSnapshot()
	if snap["query.42.processedTuples"] != uint64(7) {
		t.Fatalf("query.42.processedTuples = %v, want 7", snap["query.42.processedTuples"])
	}
	if snap["query.42.processedTasks"] != uint64(3) {
		t.Fatalf("query.42.processedTasks = %v, want 3", snap["query.42.processedTasks"])
	}
}
