package metaindex

import (
	"context"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
)

func newMemWriter(t *testing.T) *Writer {
	t.Helper()
	mapping, err := NewMapping()
	require.NoError(t, err)
	idx, err := bleve.NewMemOnly(mapping)
	require.NoError(t, err)
	return &Writer{index: idx}
}

func TestBulkBuildScenario(t *testing.T) {
	// Mirrors spec §8 scenario 1.
	seeds := []ntfs.FileMetaSeed{
		{DocKey: ids.Pack(1, 0x100), Name: "a.txt", Size: 10, Created: time.Now(), Modified: time.Now()},
		{DocKey: ids.Pack(1, 0x101), Name: "b.log", Size: 20, Created: time.Now(), Modified: time.Now()},
		{DocKey: ids.Pack(1, 0x102), Name: "dir", Flags: ntfs.FlagDirectory, Created: time.Now(), Modified: time.Now()},
	}
	idx := 0
	next := func(ctx context.Context) (ntfs.FileMetaSeed, bool, error) {
		if idx >= len(seeds) {
			return ntfs.FileMetaSeed{}, false, nil
		}
		s := seeds[idx]
		idx++
		return s, true, nil
	}

	w := newMemWriter(t)
	require.NoError(t, w.BulkBuild(context.Background(), next, func(ids.DocKey) string { return "" }))

	reader := NewReader(w.index)
	nameQuery := bleve.NewMatchQuery("a")
	nameQuery.SetField("name")
	req := bleve.NewSearchRequest(nameQuery)
	req.Fields = []string{"doc_key"}
	res, err := reader.index.Search(req)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	require.Equal(t, ids.Pack(1, 0x100).String(), res.Hits[0].Fields["doc_key"])
}

func TestUpsertRenameScenario(t *testing.T) {
	// Mirrors spec §8 scenario 2.
	w := newMemWriter(t)

	created := []ntfs.FileEvent{{Kind: ntfs.Created, DocKey: ids.Pack(1, 0x100), Name: "a.txt"}}
	require.NoError(t, w.Upsert(created, func(ids.DocKey) (*MetaDoc, bool) { return nil, false }, func(ids.DocKey) string { return "" }))

	renamed := []ntfs.FileEvent{{
		Kind: ntfs.Renamed, DocKey: ids.Pack(1, 0x100), NewName: "a2.txt",
		NewParentFRN: ids.FileId(0x102),
	}}
	lookup := func(k ids.DocKey) (*MetaDoc, bool) {
		doc, ok, _ := NewReader(w.index).Get(k)
		return doc, ok
	}
	require.NoError(t, w.Upsert(renamed, lookup, func(ids.DocKey) string { return "" }))

	reader := NewReader(w.index)
	req := bleve.NewSearchRequest(bleve.NewMatchQuery("a2"))
	res, err := reader.index.Search(req)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)

	exact := bleve.NewSearchRequest(bleve.NewTermQuery("a.txt"))
	exactRes, err := reader.index.Search(exact)
	require.NoError(t, err)
	require.Equal(t, uint64(0), exactRes.Total)
}

func TestUpsertDeleteRemovesDoc(t *testing.T) {
	w := newMemWriter(t)
	require.NoError(t, w.Upsert(
		[]ntfs.FileEvent{{Kind: ntfs.Created, DocKey: ids.Pack(1, 1), Name: "x.txt"}},
		func(ids.DocKey) (*MetaDoc, bool) { return nil, false },
		func(ids.DocKey) string { return "" },
	))
	require.NoError(t, w.Upsert(
		[]ntfs.FileEvent{{Kind: ntfs.Deleted, DocKey: ids.Pack(1, 1)}},
		func(ids.DocKey) (*MetaDoc, bool) { return nil, false },
		func(ids.DocKey) string { return "" },
	))

	reader := NewReader(w.index)
	_, ok, err := reader.Get(ids.Pack(1, 1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpsertModifiedWithStaleSequenceDeletesDoc(t *testing.T) {
	w := newMemWriter(t)

	created := []ntfs.FileEvent{{
		Kind: ntfs.Created, DocKey: ids.Pack(1, 0x100),
		FileId: ids.FileId(0x0001_0000_0000_0100), Name: "a.txt",
	}}
	require.NoError(t, w.Upsert(created, func(ids.DocKey) (*MetaDoc, bool) { return nil, false }, func(ids.DocKey) string { return "" }))

	lookup := func(k ids.DocKey) (*MetaDoc, bool) {
		doc, ok, _ := NewReader(w.index).Get(k)
		return doc, ok
	}

	// Same record number, different reuse sequence: the MFT record was
	// recycled for a new file, and only a Modified event (not Created)
	// was observed for it.
	stale := []ntfs.FileEvent{{
		Kind: ntfs.Modified, DocKey: ids.Pack(1, 0x100),
		FileId: ids.FileId(0x0002_0000_0000_0100),
	}}
	require.NoError(t, w.Upsert(stale, lookup, func(ids.DocKey) string { return "" }))

	reader := NewReader(w.index)
	_, ok, err := reader.Get(ids.Pack(1, 0x100))
	require.NoError(t, err)
	require.False(t, ok, "stale doc must be deleted, not updated in place")
}

func TestUpsertModifiedWithMatchingSequenceUpdatesInPlace(t *testing.T) {
	w := newMemWriter(t)

	created := []ntfs.FileEvent{{
		Kind: ntfs.Created, DocKey: ids.Pack(1, 0x200),
		FileId: ids.FileId(0x0001_0000_0000_0200), Name: "b.txt",
	}}
	require.NoError(t, w.Upsert(created, func(ids.DocKey) (*MetaDoc, bool) { return nil, false }, func(ids.DocKey) string { return "" }))

	lookup := func(k ids.DocKey) (*MetaDoc, bool) {
		doc, ok, _ := NewReader(w.index).Get(k)
		return doc, ok
	}

	modified := []ntfs.FileEvent{{
		Kind: ntfs.Modified, DocKey: ids.Pack(1, 0x200),
		FileId: ids.FileId(0x0001_0000_0000_0200),
	}}
	require.NoError(t, w.Upsert(modified, lookup, func(ids.DocKey) string { return "" }))

	reader := NewReader(w.index)
	doc, ok, err := reader.Get(ids.Pack(1, 0x200))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b.txt", doc.Name)
}

func TestExtHelper(t *testing.T) {
	require.Equal(t, ".txt", ext("a.txt"))
	require.Equal(t, "", ext("noext"))
	require.Equal(t, ".log", ext(`C:\dir.name\file.log`))
}
