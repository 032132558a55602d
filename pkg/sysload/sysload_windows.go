//go:build windows

package sysload

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// fsctlDiskPerformance mirrors IOCTL_DISK_PERFORMANCE from winioctl.h,
// used the same DeviceIoControl way pkg/ntfs issues its USN ioctls.
const fsctlDiskPerformance = 0x00070020

// diskPerformance mirrors DISK_PERFORMANCE's leading fields; the struct
// carries more trailing counters than UltraSearch needs.
type diskPerformance struct {
	BytesRead           int64
	BytesWritten        int64
	ReadTime            int64
	WriteTime           int64
	IdleTime            int64
	ReadCount           uint32
	WriteCount           uint32
	QueueDepth          uint32
	SplitCount          uint32
	QueryTime           int64
	StorageDeviceNumber uint32
	StorageManagerName  [16]uint16
}

// ticksPerSecond is the unit readDiskIOBytes' tick return uses: 100ns
// FILETIME ticks, matching GetSystemTimes' native resolution.
const ticksPerSecond = 1e7

type lastInputInfo struct {
	Size uint32
	Time uint32
}

var (
	modUser32               = windows.NewLazySystemDLL("user32.dll")
	procGetLastInputInfo    = modUser32.NewProc("GetLastInputInfo")
	procGetTickCount        = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetTickCount")
)

// idleSeconds calls GetLastInputInfo, the documented way to measure user
// idle time on Windows (spec §4.6: "idle time sampled from the last user
// input event").
func idleSeconds() float64 {
	info := lastInputInfo{Size: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ret, _, _ := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0
	}
	now, _, _ := procGetTickCount.Call()
	elapsedMs := uint32(now) - info.Time
	return float64(elapsedMs) / 1000.0
}

type cpuTimes struct {
	idle, kernel, user uint64
}

func filetimeToUint64(ft windows.Filetime) uint64 {
	return uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
}

// readCPUTimes samples system-wide CPU time via GetSystemTimes.
func readCPUTimes() (cpuTimes, error) {
	var idle, kernel, user windows.Filetime
	if err := windows.GetSystemTimes(&idle, &kernel, &user); err != nil {
		return cpuTimes{}, err
	}
	return cpuTimes{
		idle:   filetimeToUint64(idle),
		kernel: filetimeToUint64(kernel),
		user:   filetimeToUint64(user),
	}, nil
}

// cpuPercent derives the busy percentage between two GetSystemTimes
// samples. kernel time includes idle time on Windows, so total work is
// (kernel-idle)+user.
func cpuPercent(prev, cur cpuTimes) float64 {
	prevTotal := prev.kernel + prev.user
	curTotal := cur.kernel + cur.user
	totalDelta := curTotal - prevTotal
	idleDelta := cur.idle - prev.idle
	if totalDelta == 0 {
		return 0
	}
	busy := totalDelta - idleDelta
	return 100.0 * float64(busy) / float64(totalDelta)
}

// memPercent reports used physical memory percentage via
// GlobalMemoryStatusEx.
func memPercent() float64 {
	var status windows.MemoryStatusEx
	status.Length = uint32(unsafe.Sizeof(status))
	if err := windows.GlobalMemoryStatusEx(&status); err != nil {
		return 0
	}
	return float64(status.MemoryLoad)
}

// systemDrivePath is the coarse disk-busy signal's source: the boot
// volume, opened the same DeviceIoControl way pkg/ntfs opens a volume
// for USN ioctls. A single representative drive is enough to gate
// ContentBatch admission (spec §4.6); it is not a per-volume accounting.
const systemDrivePath = `\\.\C:`

// readDiskIOBytes returns cumulative bytes transferred on the system
// drive and a monotonic tick count (100ns units, from the ioctl's own
// QueryTime field), for the caller to derive a throughput delta.
func readDiskIOBytes() (uint64, int64, error) {
	pathPtr, err := windows.UTF16PtrFromString(systemDrivePath)
	if err != nil {
		return 0, 0, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return 0, 0, err
	}
	defer windows.CloseHandle(h)

	var perf diskPerformance
	var returned uint32
	err = windows.DeviceIoControl(
		h, fsctlDiskPerformance, nil, 0,
		(*byte)(unsafe.Pointer(&perf)), uint32(unsafe.Sizeof(perf)), &returned, nil,
	)
	if err != nil {
		return 0, 0, err
	}

	total := uint64(perf.BytesRead) + uint64(perf.BytesWritten)
	return total, perf.QueryTime, nil
}
