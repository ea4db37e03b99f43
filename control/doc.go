// Package control
// Author: nebulastream/streamcore contributors
//
// Hot-reload, runtime metrics, configuration control, and debug
// introspection layer for the streaming execution core.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload
//   - Metrics telemetry contracts, including Prometheus export
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
