//go:build !linux && !windows

// control/platform_other.go
// Author: nebulastream/streamcore contributors
//
// Fallback platform debug probes for builds without a dedicated
// affinity backend in internal/concurrency.

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
		return false
	})
}
