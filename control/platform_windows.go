//go:build windows
// +build windows

// control/platform_windows.go
// Author: nebulastream/streamcore contributors
//
// Windows-specific platform debug probes. internal/concurrency has no
// Windows affinity backend, so pinning requests are accepted but have
// no effect (spec §6 "numaAware" is advisory where the platform can't
// honor it).

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
