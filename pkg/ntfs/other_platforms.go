//go:build !windows

package ntfs

import (
	"errors"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// volumeHandle is a stand-in on non-Windows builds; UltraSearch's
// production target is Windows only (spec §1).
type volumeHandle struct{}

// OpenVolume is unsupported outside Windows.
func OpenVolume(volumeID ids.VolumeId, devicePath string) (*volumeHandle, error) {
	return nil, errors.New("ntfs volume access is only supported on windows")
}

func (v *volumeHandle) Close() error { return nil }
