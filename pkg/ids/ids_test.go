package ids

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		v VolumeId
		f FileId
	}{
		{0, 0},
		{1, 0x100},
		{math.MaxUint16, math.MaxUint64},
		{7, 0x0001_0000_0000_0000}, // sequence-number bits only, record number 0
	}

	for _, c := range cases {
		key := Pack(c.v, c.f)
		gotV, gotF := Unpack(key)
		require.Equal(t, c.v, gotV)
		require.Equal(t, FileId(uint64(c.f)&fileIdMask), gotF)
	}
}

func TestDocKeyEncodesVolumeInHighBits(t *testing.T) {
	key := Pack(1, 0x100)
	require.Equal(t, DocKey(1<<48|0x100), key)
}

func TestSequenceNumberRoundTrip(t *testing.T) {
	f := FileId(0x0007_0000_0000_0100)
	require.Equal(t, uint64(0x100), f.RecordNumber())
	require.Equal(t, uint16(7), f.SequenceNumber())
}

func TestStringFormat(t *testing.T) {
	key := Pack(1, 0x100)
	require.Equal(t, "1:00000000000100", key.String())
}
