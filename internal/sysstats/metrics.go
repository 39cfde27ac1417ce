// Package sysstats reads generic host resource usage (CPU, memory, disk).
// It is an external collaborator per the daemon's scope: the capture,
// warp, and output pipeline never consults it, but a status surface built
// on top of this daemon can.
package sysstats

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time read of host resource usage.
type Snapshot struct {
	CPUPercent  float64 `json:"cpuPercent"`
	RAMPercent  float64 `json:"ramPercent"`
	RAMUsedMB   uint64  `json:"ramUsedMb"`
	DiskPercent float64 `json:"diskPercent"`
	DiskUsedGB  float64 `json:"diskUsedGb"`
}

// Collector reads host resource usage on demand.
type Collector struct{}

// NewCollector builds a Collector.
func NewCollector() *Collector { return &Collector{} }

// Collect samples CPU, memory, and disk usage. Any individual reading
// that fails is left at its zero value rather than aborting the whole
// snapshot.
func (c *Collector) Collect() (Snapshot, error) {
	var s Snapshot

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.RAMPercent = vmem.UsedPercent
		s.RAMUsedMB = vmem.Used / 1024 / 1024
	}

	if usage, err := disk.Usage("/"); err == nil {
		s.DiskPercent = usage.UsedPercent
		s.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
	}

	return s, nil
}
