//go:build !windows

package sysload

// UltraSearch's production target is Windows only (spec §1); these stubs
// let the package build on other platforms for development/testing.

const ticksPerSecond = 1e7

type cpuTimes struct{}

func idleSeconds() float64 { return 0 }

func readCPUTimes() (cpuTimes, error) { return cpuTimes{}, nil }

func cpuPercent(prev, cur cpuTimes) float64 { return 0 }

func memPercent() float64 { return 0 }

func readDiskIOBytes() (uint64, int64, error) { return 0, 0, nil }
