// Package sysmon provides process and system resource snapshots attached to
// run summaries.
package sysmon

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot holds a point-in-time resource reading taken at the end of a
// sampling run.
type Snapshot struct {
	CPUPercent float64 // system-wide CPU usage, 0.0 .. 100.0
	MemPercent float64 // system-wide memory usage, 0.0 .. 100.0
	Goroutines int     // live goroutines in this process
	HeapAlloc  uint64  // bytes in use by this process's heap
}

// Take collects a single snapshot. CPU uses interval=0 (delta since last
// call). System-level readings degrade to zero values on error; the
// process-level readings cannot fail.
func Take() Snapshot {
	var s Snapshot

	cpuPcts, err := cpu.Percent(0, false)
	if err == nil && len(cpuPcts) > 0 {
		s.CPUPercent = cpuPcts[0]
	}
	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.Goroutines = runtime.NumGoroutine()
	s.HeapAlloc = ms.HeapAlloc

	return s
}
