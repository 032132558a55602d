// Package sysload samples the per-tick idle time, CPU load, and disk
// busy signal the scheduler's admission matrix consumes (spec §4.6).
package sysload

import (
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/scheduler"
)

// Sampler implements scheduler.InputSampler against the live host.
type Sampler struct {
	diskBusyThreshold int64

	mu          sync.Mutex
	havePrevCPU bool
	prevCPU     cpuTimes
	havePrevIO  bool
	prevIOBytes uint64
	prevIOTick  int64
}

// NewSampler builds a Sampler. diskBusyBytesPerSec is the configured
// threshold above which a volume is considered disk-busy (spec §4.6:
// "disk I/O above a configurable threshold... gates ContentBatch").
func NewSampler(diskBusyBytesPerSec int64) *Sampler {
	return &Sampler{diskBusyThreshold: diskBusyBytesPerSec}
}

// IdleSeconds reports how long since the last user input, per
// GetLastInputInfo on Windows.
func (s *Sampler) IdleSeconds() float64 {
	return idleSeconds()
}

// Load samples system CPU percent, memory percent, and a disk-busy flag
// derived from the throughput observed since the previous call.
func (s *Sampler) Load() scheduler.SystemLoad {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := readCPUTimes()
	cpuPct := 0.0
	if err == nil {
		if s.havePrevCPU {
			cpuPct = cpuPercent(s.prevCPU, cur)
		}
		s.prevCPU = cur
		s.havePrevCPU = true
	}

	diskBytes, tick, err := readDiskIOBytes()
	diskBusy := false
	if err == nil && s.havePrevIO && tick > s.prevIOTick {
		deltaBytes := diskBytes - s.prevIOBytes
		deltaSeconds := float64(tick-s.prevIOTick) / ticksPerSecond
		if deltaSeconds > 0 {
			bytesPerSec := float64(deltaBytes) / deltaSeconds
			diskBusy = s.diskBusyThreshold > 0 && int64(bytesPerSec) >= s.diskBusyThreshold
		}
	}
	if err == nil {
		s.prevIOBytes, s.prevIOTick, s.havePrevIO = diskBytes, tick, true
	}

	return scheduler.SystemLoad{
		CPUPercent: cpuPct,
		MemPercent: memPercent(),
		DiskBusy:   diskBusy,
	}
}
