// File: buffer/pool.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Manager owns the single contiguous backing arena allocated once at
// startup and the lock-free free list of buffer indices drawn from it
// (spec §4.1 "Algorithm"). Buffers are never allocated on the hot path.

package buffer

import (
	"context"
	"sync"

	"github.com/nebulastream/streamcore/internal/concurrency"
)

// cacheLineSize is the alignment granularity for buffer payloads, chosen
// to support SIMD and column-wise sums without false sharing across fields.
const cacheLineSize = 64

// PoolConfig configures the global Manager.
type PoolConfig struct {
	BufferSize      int // bytes per buffer
	NumberOfBuffers int // total buffers in the arena
	NUMANode        int // -1 = no NUMA preference
}

// DefaultPoolConfig returns sane defaults: 32 KiB buffers, 1024 of them.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		BufferSize:      32 * 1024,
		NumberOfBuffers: 1024,
		NUMANode:        -1,
	}
}

// Manager is the global, fixed-capacity tuple buffer pool (spec §4.1).
type Manager struct {
	cfg   PoolConfig
	arena []byte
	all   []*Buffer

	free *concurrency.LockFreeQueue[*Buffer]

	mu   sync.Mutex
	cond *sync.Cond

	outstanding int64 // buffers currently held outside the free queue
}

// NewManager allocates the backing arena and populates the free list.
// Allocation happens exactly once, at construction; it never recurs on
// the hot path.
func NewManager(cfg PoolConfig) *Manager {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultPoolConfig().BufferSize
	}
	if cfg.NumberOfBuffers <= 0 {
		cfg.NumberOfBuffers = DefaultPoolConfig().NumberOfBuffers
	}

	m := &Manager{cfg: cfg}
	m.cond = sync.NewCond(&m.mu)

	total := cfg.NumberOfBuffers*cfg.BufferSize + cacheLineSize
	m.arena = make([]byte, total)
	base := alignedOffset(m.arena, cacheLineSize)

	m.all = make([]*Buffer, cfg.NumberOfBuffers)
	m.free = concurrency.NewLockFreeQueue[*Buffer](cfg.NumberOfBuffers)
	for i := 0; i < cfg.NumberOfBuffers; i++ {
		start := base + i*cfg.BufferSize
		buf := newBuffer(m.arena[start:start+cfg.BufferSize], cfg.NUMANode, cfg.BufferSize, m)
		buf.refCount.Store(0) // sits in the free list, not held by anyone
		m.all[i] = buf
		m.free.Enqueue(buf)
	}
	return m
}

// alignedOffset returns the smallest index >= 0 into buf such that
// &buf[index] is aligned to align bytes.
func alignedOffset(buf []byte, align int) int {
	if len(buf) == 0 {
		return 0
	}
	addr := uintptrOf(buf)
	rem := addr % uintptr(align)
	if rem == 0 {
		return 0
	}
	return int(uintptr(align) - rem)
}

// NumberOfBuffers returns the total configured arena capacity.
func (m *Manager) NumberOfBuffers() int { return m.cfg.NumberOfBuffers }

// BufferSize returns the fixed per-buffer payload size.
func (m *Manager) BufferSize() int { return m.cfg.BufferSize }

// Available returns the number of buffers currently in the free list.
func (m *Manager) Available() int { return m.free.Len() }

// GetBufferBlocking blocks until a buffer is available or ctx is done.
// The returned buffer's payload is writable and its tuple count is 0.
func (m *Manager) GetBufferBlocking(ctx context.Context) (*Buffer, error) {
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				m.mu.Lock()
				m.cond.Broadcast()
				m.mu.Unlock()
			case <-stop:
			}
		}()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if buf, ok := m.free.Dequeue(); ok {
			buf.reset()
			m.outstanding++
			return buf, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.cond.Wait()
	}
}

// GetBufferNonBlocking returns a buffer immediately, or (nil, false) if
// the pool is exhausted. Never blocks and never allocates.
func (m *Manager) GetBufferNonBlocking() (*Buffer, bool) {
	buf, ok := m.free.Dequeue()
	if !ok {
		return nil, false
	}
	buf.reset()
	m.mu.Lock()
	m.outstanding++
	m.mu.Unlock()
	return buf, true
}

// put implements Releaser: returns buf to the free list, with m restored
// as its owner, and wakes every blocked waiter. This is the sole trigger
// for recycling (spec §4.1).
func (m *Manager) put(buf *Buffer) {
	buf.owner = m
	m.free.Enqueue(buf)
	m.mu.Lock()
	m.outstanding--
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Stats reports a point-in-time snapshot for control/debug exposure.
type Stats struct {
	Capacity    int
	Available   int
	Outstanding int64
}

// Stats returns the manager's current occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Capacity:    m.cfg.NumberOfBuffers,
		Available:   m.free.Len(),
		Outstanding: m.outstanding,
	}
}
