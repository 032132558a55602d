//go:build !windows

package volume

import "errors"

// enumerateVolumes has no implementation outside Windows; UltraSearch's
// production target is Windows only (spec §1). Tests substitute a fake
// enumerator via newManagerWith instead of calling this.
func enumerateVolumes() ([]rawVolume, error) {
	return nil, errors.New("volume enumeration is only supported on windows")
}
