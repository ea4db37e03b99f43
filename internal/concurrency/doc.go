// Package concurrency holds low-level, allocation-free primitives shared
// across the streaming core: the lock-free MPMC queue backing the buffer
// manager's free list, and the CPU-affinity helpers used to pin worker
// and source goroutines.
package concurrency
