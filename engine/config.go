// File: engine/config.go
// Package engine implements the Node Engine: the composition root that
// constructs the Buffer Manager, Partition Manager, Network Manager, and
// Query Manager once per process, and orchestrates query registration
// and lifecycle (spec §4.8).
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
package engine

// Config is the Node Engine's external configuration surface (spec §6
// "Node Engine config"). Parsing Config from a file or flags is an
// explicit Non-goal (spec §1); callers construct it directly or via
// DefaultConfig plus field assignment.
type Config struct {
	Host                                    string
	RPCPort                                 int
	DataPort                                int
	NumWorkerThreads                        int
	NumberOfBuffersInGlobalBufferManager    int
	NumberOfBuffersPerWorker                int
	NumberOfBuffersInSourceLocalBufferPool  int
	BufferSizeInBytes                       int

	// NumaAware, WorkerPinList, and SourcePinList configure thread
	// pinning (spec §6). WorkerPinList[i % len] pins worker thread i;
	// SourcePinList[i % len] pins the i-th source thread started across
	// the Node's lifetime. Both are ignored unless NumaAware is true.
	NumaAware     bool
	WorkerPinList []int
	SourcePinList []int
}

// DefaultConfig returns sane single-node defaults suitable for tests and
// local development.
func DefaultConfig() Config {
	return Config{
		Host:                                   "127.0.0.1",
		RPCPort:                                 0,
		DataPort:                                0,
		NumWorkerThreads:                        4,
		NumberOfBuffersInGlobalBufferManager:    1024,
		NumberOfBuffersPerWorker:                64,
		NumberOfBuffersInSourceLocalBufferPool:  32,
		BufferSizeInBytes:                       32 * 1024,
	}
}

// Option mutates a Config; used to override DefaultConfig's fields
// without a partially-populated struct literal.
type Option func(*Config)

// WithDataPort overrides the data-plane listen port.
func WithDataPort(port int) Option {
	return func(c *Config) { c.DataPort = port }
}

// WithWorkerThreads overrides the Query Manager's worker pool size.
func WithWorkerThreads(n int) Option {
	return func(c *Config) { c.NumWorkerThreads = n }
}

// WithAffinity enables NUMA-aware thread pinning and assigns the CPUs
// for worker and source threads (spec §6).
func WithAffinity(workerPinList, sourcePinList []int) Option {
	return func(c *Config) {
		c.NumaAware = true
		c.WorkerPinList = workerPinList
		c.SourcePinList = sourcePinList
	}
}

// NewConfig builds a Config from DefaultConfig with opts applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
