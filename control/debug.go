// control/debug.go
// Author: nebulastream/streamcore contributors
//
// Runtime debug handler and probe reflector for internal inspection,
// plus typed constructors for the two domain snapshots a Node Engine
// exposes through it: buffer pool occupancy and partition registry
// state (spec §4.3 "Observability").

package control

import (
	"sync"

	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/partition"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// RegisterBufferPoolProbe registers a probe under name that snapshots
// mgr's occupancy on every DumpState call.
func RegisterBufferPoolProbe(dp *DebugProbes, name string, mgr *buffer.Manager) {
	dp.RegisterProbe(name, func() any { return mgr.Stats() })
}

// RegisterPartitionProbe registers a probe under name that snapshots
// reg's per-state partition counts on every DumpState call (spec §4.3
// "ConsumerState... Registered / Unregistered / Deleted").
func RegisterPartitionProbe(dp *DebugProbes, name string, reg *partition.Registry) {
	dp.RegisterProbe(name, func() any { return reg.Snapshot() })
}
