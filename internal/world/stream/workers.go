package stream

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultWorkers returns the size of the meshing pool: one less than the
// number of logical CPUs, leaving a core to the render thread, and at least 1.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	return max(n-1, 1)
}
