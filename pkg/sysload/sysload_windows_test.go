//go:build windows

package sysload

import "testing"

func TestCPUPercentComputesBusyFraction(t *testing.T) {
	prev := cpuTimes{idle: 1000, kernel: 5000, user: 2000}
	cur := cpuTimes{idle: 1200, kernel: 5800, user: 2400}

	got := cpuPercent(prev, cur)
	// totalDelta = (5800+2400)-(5000+2000) = 1200, idleDelta = 200, busy = 1000
	want := 100.0 * 1000.0 / 1200.0
	if got < want-0.001 || got > want+0.001 {
		t.Fatalf("cpuPercent() = %v, want %v", got, want)
	}
}

func TestCPUPercentZeroDeltaIsZero(t *testing.T) {
	same := cpuTimes{idle: 10, kernel: 20, user: 30}
	if got := cpuPercent(same, same); got != 0 {
		t.Fatalf("cpuPercent() = %v, want 0", got)
	}
}
