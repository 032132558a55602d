package ntfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

type fakeMftReader struct {
	seeds []FileMetaSeed
	idx   int
}

func (f *fakeMftReader) Next(ctx context.Context) (FileMetaSeed, bool, error) {
	if f.idx >= len(f.seeds) {
		return FileMetaSeed{}, false, nil
	}
	s := f.seeds[f.idx]
	f.idx++
	return s, true, nil
}

func TestEnumeratorBulkBuildScenario(t *testing.T) {
	// Mirrors spec §8 scenario 1: synthetic MFT of 3 files.
	reader := &fakeMftReader{seeds: []FileMetaSeed{
		{DocKey: ids.Pack(1, 0x100), Name: "a.txt", Size: 10},
		{DocKey: ids.Pack(1, 0x101), Name: "b.log", Size: 20},
		{DocKey: ids.Pack(1, 0x102), Name: "dir", Flags: FlagDirectory},
	}}

	enum, err := NewEnumerator(1, reader, nil)
	require.NoError(t, err)

	var got []FileMetaSeed
	for {
		seed, ok, err := enum.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, seed)
	}
	require.Len(t, got, 3)
	require.Equal(t, ids.Pack(1, 0x100), got[0].DocKey)
}

func TestEnumeratorFiltersExcludedNames(t *testing.T) {
	reader := &fakeMftReader{seeds: []FileMetaSeed{
		{DocKey: ids.Pack(1, 1), Name: "$RECYCLE.BIN"},
		{DocKey: ids.Pack(1, 2), Name: "notes.txt"},
	}}

	enum, err := NewEnumerator(1, reader, []string{`^\$`})
	require.NoError(t, err)

	var names []string
	for {
		seed, ok, _ := enum.Next(context.Background())
		if !ok {
			break
		}
		names = append(names, seed.Name)
	}
	require.Equal(t, []string{"notes.txt"}, names)
}

func TestResolvePathUsesCacheAndParentChase(t *testing.T) {
	reader := &fakeMftReader{}
	enum, err := NewEnumerator(1, reader, nil)
	require.NoError(t, err)

	root := ids.Pack(1, 0x5)
	child := ids.Pack(1, 0x6)
	enum.cache.Put(root, "C:\\data")

	parentOf := func(k ids.DocKey) (ids.DocKey, string, bool) {
		if k == child {
			return root, "notes.txt", true
		}
		return 0, "", false
	}

	p, ok := enum.ResolvePath(child, parentOf)
	require.True(t, ok)
	require.Equal(t, `C:\data\notes.txt`, p)

	// Second resolution should hit the cache directly without consulting
	// parentOf again.
	called := false
	p2, ok := enum.ResolvePath(child, func(ids.DocKey) (ids.DocKey, string, bool) {
		called = true
		return 0, "", false
	})
	require.True(t, ok)
	require.Equal(t, p, p2)
	require.False(t, called)
}
