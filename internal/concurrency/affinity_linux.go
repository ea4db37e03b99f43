//go:build linux

// File: internal/concurrency/affinity_linux.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Linux CPU affinity via golang.org/x/sys/unix, no cgo required.

package concurrency

import "golang.org/x/sys/unix"

func platformSetAffinity(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}
