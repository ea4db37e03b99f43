// File: buffer/local_pool.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// LocalBufferPool reserves a capped share of the global Manager for one
// source or worker. FixedSizeBufferPool is the same mechanism with
// fallback disabled, used by sources that must stay bounded so that
// backpressure propagates upstream (spec §4.1).

package buffer

import (
	"context"
	"sync/atomic"
	"time"
)

// LocalPool hands out buffers drawn from a parent Manager under a hard
// cap. With Fallback set, a LocalPool may also draw beyond its cap
// directly from the global free queue; without it (FixedSizeBufferPool),
// exhausting the cap blocks the caller exactly like global exhaustion
// blocks a global caller, which is what lets a bounded source apply
// backpressure to everything upstream of it.
type LocalPool struct {
	parent      *Manager
	cap         int
	fallback    bool
	outstanding atomic.Int64
}

// createLocalBufferPool reserves numBuffers from the global Manager for
// the caller; fallback decides whether the pool may keep drawing from the
// global pool once numBuffers are checked out.
func (m *Manager) createLocalBufferPool(numBuffers int, fallback bool) *LocalPool {
	return &LocalPool{parent: m, cap: numBuffers, fallback: fallback}
}

// NewLocalBufferPool reserves numBuffers from mgr with fallback enabled
// (spec §4.1 createLocalBufferPool).
func NewLocalBufferPool(mgr *Manager, numBuffers int) *LocalPool {
	return mgr.createLocalBufferPool(numBuffers, true)
}

// NewFixedSizeBufferPool reserves numBuffers from mgr with no fallback
// (spec §4.1 createFixedSizeBufferPool): sources drawing from it are
// bounded, so their own backpressure stalls upstream production.
func NewFixedSizeBufferPool(mgr *Manager, numBuffers int) *LocalPool {
	return mgr.createLocalBufferPool(numBuffers, false)
}

// Cap returns the pool's reserved capacity.
func (p *LocalPool) Cap() int { return p.cap }

// Outstanding returns the number of buffers currently checked out through this pool.
func (p *LocalPool) Outstanding() int64 { return p.outstanding.Load() }

// GetBufferBlocking acquires a buffer, blocking while the pool's local
// capacity is exhausted (and, with fallback disabled, never drawing more
// than cap buffers concurrently regardless of global availability).
func (p *LocalPool) GetBufferBlocking(ctx context.Context) (*Buffer, error) {
	for {
		if p.outstanding.Load() < int64(p.cap) || p.fallback {
			buf, err := p.parent.GetBufferBlocking(ctx)
			if err != nil {
				return nil, err
			}
			p.claim(buf)
			return buf, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// GetBufferNonBlocking acquires a buffer without blocking, or returns
// (nil, false) if the local cap (or, lacking that, the global pool) is exhausted.
func (p *LocalPool) GetBufferNonBlocking() (*Buffer, bool) {
	if p.outstanding.Load() >= int64(p.cap) && !p.fallback {
		return nil, false
	}
	buf, ok := p.parent.GetBufferNonBlocking()
	if !ok {
		return nil, false
	}
	p.claim(buf)
	return buf, true
}

// claim rewires buf's release path through this LocalPool so that
// releasing it both decrements our local accounting and recycles the
// buffer back to the global arena.
func (p *LocalPool) claim(buf *Buffer) {
	p.outstanding.Add(1)
	buf.owner = localReleaser{pool: p, global: buf.owner}
}

type localReleaser struct {
	pool   *LocalPool
	global Releaser
}

func (r localReleaser) put(b *Buffer) {
	r.pool.outstanding.Add(-1)
	if r.global != nil {
		r.global.put(b)
	}
}
