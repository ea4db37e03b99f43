// control/config.go
// Author: nebulastream/streamcore contributors
//
// Thread-safe configuration store with dynamic update and hot-reload
// propagation, plus the typed thread-affinity surface a Node Engine
// publishes alongside its freeform config map (spec §6 "numaAware,
// workerPinList, sourcePinList").

package control

import (
	"sync"
)

// AffinityConfig is the CPU/NUMA pinning policy a Node Engine is running
// with. WorkerPinList and SourcePinList are consulted round-robin by
// index (modulo the list length); an empty list, or NUMAAware=false,
// means "unpinned".
type AffinityConfig struct {
	NUMAAware     bool
	WorkerPinList []int
	SourcePinList []int
}

// PinForWorker returns the CPU id worker thread i should pin to, or -1
// if it should run unpinned.
func (a AffinityConfig) PinForWorker(i int) int {
	if !a.NUMAAware || len(a.WorkerPinList) == 0 {
		return -1
	}
	return a.WorkerPinList[i%len(a.WorkerPinList)]
}

// PinForSource returns the CPU id the i-th source thread should pin to,
// or -1 if it should run unpinned.
func (a AffinityConfig) PinForSource(i int) int {
	if !a.NUMAAware || len(a.SourcePinList) == 0 {
		return -1
	}
	return a.SourcePinList[i%len(a.SourcePinList)]
}

// ConfigStore is a dynamic key/value map with atomic snapshot and
// listener support, plus a dedicated slot for the Node's AffinityConfig
// so debug/administration surfaces can inspect the pinning policy
// currently in effect without reaching into engine-internal state.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
	affinity  AffinityConfig
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// SetAffinity records the pinning policy in effect and dispatches
// reload listeners, the same way SetConfig does for the freeform map.
func (cs *ConfigStore) SetAffinity(a AffinityConfig) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.affinity = a
	cs.dispatchReload()
}

// Affinity returns the pinning policy last recorded by SetAffinity.
func (cs *ConfigStore) Affinity() AffinityConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.affinity
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	copy := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		copy[k] = v
	}
	return copy
}

// SetConfig merges new values and dispatches reload if needed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.dispatchReload()
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes all listeners.
func (cs *ConfigStore) dispatchReload() {
	for _, fn := range cs.listeners {
		go fn()
	}
}
