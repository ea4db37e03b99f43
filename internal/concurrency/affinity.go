// File: internal/concurrency/affinity.go
// Package concurrency
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Cross-platform CPU pinning for worker and source threads. Platform-
// specific backends live in affinity_linux.go / affinity_other.go.

package concurrency

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread and, on
// platforms that support it, binds that thread to cpuID. numaNode is
// advisory and only consulted by the Linux backend.
func PinCurrentThread(numaNode, cpuID int) error {
	runtime.LockOSThread()
	if cpuID < 0 {
		return nil
	}
	return platformSetAffinity(cpuID)
}

// UnpinCurrentThread releases the OS thread lock taken by PinCurrentThread.
func UnpinCurrentThread() {
	runtime.UnlockOSThread()
}
