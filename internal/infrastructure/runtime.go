package infrastructure

import (
	"runtime"
	"time"
)

var processStart = time.Now()

// RuntimeStats is a snapshot of process resource usage
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB uint64  `json:"memory_alloc_mb"`
	MemorySysMB   uint64  `json:"memory_sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	CPUCount      int     `json:"cpu_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// CollectRuntimeStats reads the current runtime statistics
func CollectRuntimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: mem.Alloc / 1024 / 1024,
		MemorySysMB:   mem.Sys / 1024 / 1024,
		GCCount:       mem.NumGC,
		CPUCount:      runtime.NumCPU(),
		UptimeSeconds: time.Since(processStart).Seconds(),
	}
}
