//go:build windows

package volume

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// enumerateVolumes lists local fixed NTFS volumes via the Windows volume
// enumeration APIs (FindFirstVolume/FindNextVolume) and resolves each
// volume GUID path to its mounted drive letters with
// GetVolumePathNamesForVolumeName.
func enumerateVolumes() ([]rawVolume, error) {
	var out []rawVolume

	buf := make([]uint16, windows.MAX_PATH+1)
	handle, err := windows.FindFirstVolume(&buf[0], uint32(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("FindFirstVolume: %w", err)
	}
	defer windows.FindVolumeClose(handle)

	for {
		guidPath := windows.UTF16ToString(buf)
		if isFixedNTFSVolume(guidPath) {
			letters, err := drivesForVolume(guidPath)
			if err != nil {
				return nil, fmt.Errorf("GetVolumePathNamesForVolumeName %s: %w", guidPath, err)
			}
			if len(letters) > 0 {
				out = append(out, rawVolume{guidPath: guidPath, driveLetters: letters})
			}
		}

		err := windows.FindNextVolume(handle, &buf[0], uint32(len(buf)))
		if err != nil {
			if err == windows.ERROR_NO_MORE_FILES {
				break
			}
			return nil, fmt.Errorf("FindNextVolume: %w", err)
		}
	}

	return out, nil
}

// isFixedNTFSVolume filters out removable/network/CD-ROM volumes, matching
// the "local NTFS volumes only" scope from spec §3.
func isFixedNTFSVolume(guidPath string) bool {
	root := guidPath
	driveType := windows.GetDriveType(windows.StringToUTF16Ptr(root))
	if driveType != windows.DRIVE_FIXED {
		return false
	}

	var fsNameBuf [windows.MAX_PATH + 1]uint16
	rootPtr, err := windows.UTF16PtrFromString(guidPath)
	if err != nil {
		return false
	}
	err = windows.GetVolumeInformation(
		rootPtr, nil, 0, nil, nil, nil,
		&fsNameBuf[0], uint32(len(fsNameBuf)),
	)
	if err != nil {
		return false
	}
	fsName := windows.UTF16ToString(fsNameBuf[:])
	return strings.EqualFold(fsName, "NTFS")
}

// drivesForVolume resolves a volume GUID path to its mounted path names
// (drive letters and mount points).
func drivesForVolume(guidPath string) ([]string, error) {
	guidPtr, err := windows.UTF16PtrFromString(guidPath)
	if err != nil {
		return nil, err
	}

	var needed uint32
	buf := make([]uint16, windows.MAX_PATH)
	for {
		err := getVolumePathNamesForVolumeName(guidPtr, &buf[0], uint32(len(buf)), &needed)
		if err == nil {
			break
		}
		if err == windows.ERROR_MORE_DATA || err == syscall.ERROR_INSUFFICIENT_BUFFER {
			buf = make([]uint16, needed)
			continue
		}
		return nil, err
	}

	var out []string
	for _, s := range splitNulTerminatedStrings(buf) {
		if s != "" {
			out = append(out, strings.TrimSuffix(s, `\`))
		}
	}
	return out, nil
}

func splitNulTerminatedStrings(buf []uint16) []string {
	var out []string
	start := 0
	for i, c := range buf {
		if c == 0 {
			if i > start {
				out = append(out, windows.UTF16ToString(buf[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

var (
	modkernel32                          = windows.NewLazySystemDLL("kernel32.dll")
	procGetVolumePathNamesForVolumeNameW = modkernel32.NewProc("GetVolumePathNamesForVolumeNameW")
)

func getVolumePathNamesForVolumeName(guidPath *uint16, out *uint16, outLen uint32, needed *uint32) error {
	r1, _, e1 := procGetVolumePathNamesForVolumeNameW.Call(
		uintptr(unsafe.Pointer(guidPath)),
		uintptr(unsafe.Pointer(out)),
		uintptr(outLen),
		uintptr(unsafe.Pointer(needed)),
	)
	if r1 == 0 {
		return e1
	}
	return nil
}
