package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

func TestParentTablePutGet(t *testing.T) {
	pt := newParentTable()

	key := ids.Pack(1, 0x10)
	parent := ids.Pack(1, 0x1)
	pt.put(key, parent, "report.docx")

	gotParent, gotName, ok := pt.get(key)
	require.True(t, ok)
	require.Equal(t, parent, gotParent)
	require.Equal(t, "report.docx", gotName)
}

func TestParentTableGetMissing(t *testing.T) {
	pt := newParentTable()
	_, _, ok := pt.get(ids.Pack(1, 0xff))
	require.False(t, ok)
}

func TestDevicePathForStripsTrailingBackslash(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{11111111-2222-3333-4444-555555555555}\`}
	require.Equal(t, `\\?\Volume{11111111-2222-3333-4444-555555555555}`, devicePathFor(d))
}

func TestExtOf(t *testing.T) {
	require.Equal(t, ".docx", extOf(`C:\Users\alice\report.docx`))
	require.Equal(t, "", extOf(`C:\Users\alice\README`))
}
