// control/metrics_prometheus.go
// Author: nebulastream/streamcore contributors
//
// Exports query statistics gathered by the scheduler as Prometheus
// gauges, in addition to the registry's own in-memory snapshot.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter mirrors MetricsRegistry values onto a set of
// Prometheus gauges, keyed by the same metric name. It is wired by the
// Node Engine at startup and updated each time the engine samples query
// statistics (spec §4.8 "statistics are read by the Node Engine at
// measurement intervals").
type PrometheusExporter struct {
	registry *MetricsRegistry
	gauges   *prometheus.GaugeVec
}

// NewPrometheusExporter creates an exporter registering its GaugeVec
// with reg under the given namespace.
func NewPrometheusExporter(registry *MetricsRegistry, reg prometheus.Registerer, namespace string) *PrometheusExporter {
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "statistic",
		Help:      "Streaming execution core per-query statistics, labeled by metric name.",
	}, []string{"metric"})
	reg.MustRegister(gauges)
	return &PrometheusExporter{registry: registry, gauges: gauges}
}

// Sync pushes the current MetricsRegistry snapshot into the gauges.
// Non-numeric values are skipped; they are still visible through
// MetricsRegistry.GetSnapshot for debug probes.
func (e *PrometheusExporter) Sync() {
	for k, v := range e.registry.GetSnapshot() {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case uint64:
			f = float64(n)
		case int64:
			f = float64(n)
		case int:
			f = float64(n)
		default:
			continue
		}
		e.gauges.WithLabelValues(k).Set(f)
	}
}
