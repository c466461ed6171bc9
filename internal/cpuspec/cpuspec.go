// Package cpuspec picks interpreter thread counts from the host CPU topology.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
}

// GetCPUSpec returns the specifications of the host CPU.
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
}

// OptimalThreadCount returns the recommended inference thread count.
// Physical cores are preferred since SMT siblings add little for dense
// float kernels. The result never exceeds the CPUs available to the process.
func (c CPUSpec) OptimalThreadCount() int {
	available := runtime.NumCPU()

	switch {
	case c.PhysicalCores > 0:
		return min(c.PhysicalCores, available)
	case c.LogicalCores > 0:
		return min(c.LogicalCores, available)
	default:
		return available
	}
}

// ThreadCount resolves a configured thread count: 0 selects the optimal
// count for the host, larger values are capped at the available CPUs.
func ThreadCount(configured int) int {
	if configured <= 0 {
		return max(1, GetCPUSpec().OptimalThreadCount())
	}
	return min(configured, runtime.NumCPU())
}
