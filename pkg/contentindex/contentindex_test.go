package contentindex

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

func newMemWriter(t *testing.T) *Writer {
	t.Helper()
	mapping, err := NewMapping()
	require.NoError(t, err)
	idx, err := bleve.NewMemOnly(mapping)
	require.NoError(t, err)
	return &Writer{index: idx}
}

func TestIndexBatchIsIdempotent(t *testing.T) {
	w := newMemWriter(t)
	key := ids.Pack(1, 0x100)

	require.NoError(t, w.IndexBatch([]ContentDoc{{DocKey: key.String(), Volume: 1, Content: "quarterly revenue"}}))
	require.NoError(t, w.IndexBatch([]ContentDoc{{DocKey: key.String(), Volume: 1, Content: "updated revenue figures"}}))

	req := bleve.NewSearchRequest(bleve.NewMatchQuery("updated"))
	res, err := w.index.Search(req)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)

	stale := bleve.NewSearchRequest(bleve.NewMatchQuery("quarterly"))
	staleRes, err := w.index.Search(stale)
	require.NoError(t, err)
	require.Equal(t, uint64(0), staleRes.Total)
}

func TestDeleteByDocKey(t *testing.T) {
	w := newMemWriter(t)
	key := ids.Pack(1, 0x200)
	require.NoError(t, w.IndexBatch([]ContentDoc{{DocKey: key.String(), Content: "report draft"}}))
	require.NoError(t, w.DeleteByDocKey(key))

	req := bleve.NewSearchRequest(bleve.NewMatchQuery("report"))
	res, err := w.index.Search(req)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Total)
}
