package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

func TestVolumeStateStoreSaveLoadRoundTrip(t *testing.T) {
	store := newVolumeStateStore(t.TempDir())

	in := map[string]persistedVolume{
		`\\?\Volume{a}\`: {GUIDPath: `\\?\Volume{a}\`, VolumeID: 1, JournalID: 42, LastUsn: 1000, Built: true},
	}
	require.NoError(t, store.save(in))

	out, err := store.load()
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestVolumeStateStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newVolumeStateStore(filepath.Join(t.TempDir(), "nested"))
	out, err := store.load()
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestVolumeStateStoreUpdateIsReadModifyWrite(t *testing.T) {
	store := newVolumeStateStore(t.TempDir())

	err := store.update(`\\?\Volume{a}\`, func(v *persistedVolume) {
		v.GUIDPath = `\\?\Volume{a}\`
		v.VolumeID = 3
		v.JournalID = 7
		v.LastUsn = 5
	})
	require.NoError(t, err)

	err = store.update(`\\?\Volume{a}\`, func(v *persistedVolume) {
		v.LastUsn = 9
		v.Built = true
	})
	require.NoError(t, err)

	out, err := store.load()
	require.NoError(t, err)
	v := out[`\\?\Volume{a}\`]
	require.Equal(t, ids.VolumeId(3), v.VolumeID)
	require.Equal(t, uint64(7), v.JournalID)
	require.Equal(t, ids.Usn(9), v.LastUsn)
	require.True(t, v.Built)
}

func TestPersistVolumeStateWritesThroughService(t *testing.T) {
	svc := &Service{volumeState: newVolumeStateStore(t.TempDir())}
	d := volume.Descriptor{GUIDPath: `\\?\Volume{b}\`, ID: 2}

	require.NoError(t, svc.persistVolumeState(d, 99, 123))

	out, err := svc.volumeState.load()
	require.NoError(t, err)
	v := out[d.GUIDPath]
	require.Equal(t, d.ID, v.VolumeID)
	require.Equal(t, uint64(99), v.JournalID)
	require.Equal(t, ids.Usn(123), v.LastUsn)
	require.True(t, v.Built)
}

func TestStoredPositionConversion(t *testing.T) {
	v := persistedVolume{JournalID: 5, LastUsn: 10}
	sp := storedPosition(v)
	require.Equal(t, ntfs.StoredPosition{JournalID: 5, LastUsn: 10}, sp)
}
