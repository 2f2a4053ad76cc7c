package telemetry

import (
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine a run executed on.
type HostInfo struct {
	CPUModel      string `yaml:"cpu_model"`
	LogicalCores  int    `yaml:"logical_cores"`
	PhysicalCores int    `yaml:"physical_cores"`
	TotalMemoryMB uint64 `yaml:"total_memory_mb"`
	GOMAXPROCS    int    `yaml:"gomaxprocs"`
	GoVersion     string `yaml:"go_version"`
}

// CollectHostInfo gathers host details. Probes that fail are logged at
// debug level and leave their fields zero.
func CollectHostInfo() HostInfo {
	info := HostInfo{
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GoVersion:  runtime.Version(),
	}

	if cpus, err := cpu.Info(); err != nil {
		slog.Debug("cpu info unavailable", "error", err)
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if n, err := cpu.Counts(true); err != nil {
		slog.Debug("logical core count unavailable", "error", err)
	} else {
		info.LogicalCores = n
	}

	if n, err := cpu.Counts(false); err != nil {
		slog.Debug("physical core count unavailable", "error", err)
	} else {
		info.PhysicalCores = n
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		slog.Debug("memory info unavailable", "error", err)
	} else {
		info.TotalMemoryMB = vm.Total / (1 << 20)
	}

	return info
}
