package query

import (
	"context"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/config"
	"github.com/ultrasearch/ultrasearch/pkg/contentindex"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/metaindex"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, bleve.Index, bleve.Index) {
	t.Helper()

	metaMapping, err := metaindex.NewMapping()
	require.NoError(t, err)
	metaIdx, err := bleve.NewMemOnly(metaMapping)
	require.NoError(t, err)

	contentMapping, err := contentindex.NewMapping()
	require.NoError(t, err)
	contentIdx, err := bleve.NewMemOnly(contentMapping)
	require.NoError(t, err)

	snap := config.Default()
	store := config.NewStore("", snap)

	orch := New(metaindex.NewReader(metaIdx), contentindex.NewReader(contentIdx), store)
	return orch, metaIdx, contentIdx
}

func indexMetaDoc(t *testing.T, idx bleve.Index, key ids.DocKey, name, path, ext string, size int64, modified time.Time) {
	t.Helper()
	doc := metaindex.NewMetaDoc(key, ids.FileId(key.File()), name, path, ext, size, modified, modified, 0)
	require.NoError(t, idx.Index(key.String(), doc))
}

func indexContentDoc(t *testing.T, idx bleve.Index, key ids.DocKey, content string) {
	t.Helper()
	doc := contentindex.ContentDoc{DocKey: key.String(), Volume: uint16(key.Volume()), Content: content}
	require.NoError(t, idx.Index(key.String(), &doc))
}

func TestSearchNameOnlyMatchesByWord(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	key := ids.Pack(1, 0x100)
	indexMetaDoc(t, metaIdx, key, "quarterly-report.pdf", `C:\docs\quarterly-report.pdf`, ".pdf", 1024, time.Now())

	result, err := orch.Search(context.Background(), "report", 10, 0, ModeNameOnly)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Equal(t, key, result.Hits[0].DocKey)
	require.Empty(t, result.Hits[0].Snippet)
}

func TestSearchContentModeMatchesBody(t *testing.T) {
	orch, metaIdx, contentIdx := newTestOrchestrator(t)

	key := ids.Pack(1, 0x200)
	indexMetaDoc(t, metaIdx, key, "notes.txt", `C:\docs\notes.txt`, ".txt", 256, time.Now())
	indexContentDoc(t, contentIdx, key, "quarterly revenue projections for next year")

	result, err := orch.Search(context.Background(), "content:revenue", 10, 0, ModeContent)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Equal(t, key, result.Hits[0].DocKey)
	require.NotEmpty(t, result.Hits[0].Snippet)
}

// TestHybridRanksExactNameMatchAbove mirrors the spec's hybrid-scoring
// scenario: a file whose name exactly matches the query term outranks one
// that merely mentions it in content, once the exact-name boost applies.
func TestHybridRanksExactNameMatchAbove(t *testing.T) {
	orch, metaIdx, contentIdx := newTestOrchestrator(t)

	reportKey := ids.Pack(1, 0x1)
	notesKey := ids.Pack(1, 0x2)

	indexMetaDoc(t, metaIdx, reportKey, "report", `C:\docs\report.pdf`, ".pdf", 100, time.Now())
	indexContentDoc(t, contentIdx, reportKey, "quarterly revenue")

	indexMetaDoc(t, metaIdx, notesKey, "notes.txt", `C:\docs\notes.txt`, ".txt", 50, time.Now())
	indexContentDoc(t, contentIdx, notesKey, "report draft pending review")

	result, err := orch.Search(context.Background(), "report", 10, 0, ModeHybrid)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	require.Equal(t, reportKey, result.Hits[0].DocKey)
}

func TestAutoModePicksHybridForMultiWordPhrase(t *testing.T) {
	orch, metaIdx, contentIdx := newTestOrchestrator(t)

	key := ids.Pack(1, 0x300)
	indexMetaDoc(t, metaIdx, key, "budget.xlsx", `C:\docs\budget.xlsx`, ".xlsx", 10, time.Now())
	indexContentDoc(t, contentIdx, key, "annual operating budget review")

	result, err := orch.Search(context.Background(), `"operating budget"`, 10, 0, ModeAuto)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
}

func TestAutoModePicksNameOnlyForSingleBareWord(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	key := ids.Pack(1, 0x400)
	indexMetaDoc(t, metaIdx, key, "invoice.pdf", `C:\docs\invoice.pdf`, ".pdf", 10, time.Now())

	result, err := orch.Search(context.Background(), "invoice", 10, 0, ModeAuto)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Empty(t, result.Hits[0].Snippet)
}

func TestSearchReturnsPartialResultsOnTimeout(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	key := ids.Pack(1, 0x500)
	indexMetaDoc(t, metaIdx, key, "alpha.txt", `C:\docs\alpha.txt`, ".txt", 10, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	time.Sleep(time.Millisecond)

	result, err := orch.Search(ctx, "alpha", 10, 0, ModeNameOnly)
	require.NoError(t, err)
	require.True(t, result.TimedOut)
}

func TestSearchEmptyQueryReturnsEmptyResultNotError(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	key := ids.Pack(1, 0x600)
	indexMetaDoc(t, metaIdx, key, "alpha.txt", `C:\docs\alpha.txt`, ".txt", 10, time.Now())

	result, err := orch.Search(context.Background(), "   ", 10, 0, ModeAuto)
	require.NoError(t, err)
	require.Empty(t, result.Hits)
	require.Zero(t, result.Total)
}

func TestSearchLimitZeroReturnsNoHitsButPopulatesTotal(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	indexMetaDoc(t, metaIdx, ids.Pack(1, 0x700), "budget.txt", `C:\docs\budget.txt`, ".txt", 10, time.Now())
	indexMetaDoc(t, metaIdx, ids.Pack(1, 0x701), "budget2.txt", `C:\docs\budget2.txt`, ".txt", 10, time.Now())

	result, err := orch.Search(context.Background(), "budget", 0, 0, ModeNameOnly)
	require.NoError(t, err)
	require.Empty(t, result.Hits)
	require.EqualValues(t, 2, result.Total)
}

func TestSearchOffsetBeyondTotalStillPopulatesTotal(t *testing.T) {
	orch, metaIdx, _ := newTestOrchestrator(t)

	indexMetaDoc(t, metaIdx, ids.Pack(1, 0x800), "ledger.txt", `C:\docs\ledger.txt`, ".txt", 10, time.Now())

	result, err := orch.Search(context.Background(), "ledger", 10, 50, ModeNameOnly)
	require.NoError(t, err)
	require.Empty(t, result.Hits)
	require.EqualValues(t, 1, result.Total)
}

func TestParseRejectsMalformedRange(t *testing.T) {
	_, err := Parse("size:notanumber")
	require.Error(t, err)

	expr, err := Parse("size>1000")
	require.NoError(t, err)
	_, ok := expr.(RangeExpr)
	require.True(t, ok)
}
