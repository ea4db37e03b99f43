//go:build linux
// +build linux

// control/platform_linux.go
// Author: nebulastream/streamcore contributors
//
// Linux-specific platform debug probes: CPU count and whether the
// internal/concurrency affinity backend for this build can actually
// bind a thread (spec §6 "numaAware" requires a real pinning syscall
// to be meaningful; Linux has one via golang.org/x/sys/unix).

package control

import (
	"runtime"
)

// RegisterPlatformProbes registers platform.cpus and platform.cpuPinningSupported.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.cpuPinningSupported", func() any {
		return true
	})
}
