package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/ultrasearch/ultrasearch/pkg/config"
	"github.com/ultrasearch/ultrasearch/pkg/contentindex"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/metaindex"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
)

// Mode selects which index (or indices) a search runs against (spec §4.8).
type Mode string

const (
	ModeNameOnly Mode = "name_only"
	ModeContent  Mode = "content"
	ModeHybrid   Mode = "hybrid"
	ModeAuto     Mode = "auto"
)

// Hit is one ranked result row, shaped for the IPC layer's SearchHit.
type Hit struct {
	DocKey   ids.DocKey
	Score    float64
	Name     string
	Path     string
	Size     int64
	Modified time.Time
	Ext      string
	Snippet  string
}

// Result is the outcome of one Search call.
type Result struct {
	Hits     []Hit
	Total    int64
	TimedOut bool
}

// Orchestrator executes parsed queries against the metadata and content
// indices and merges/ranks the results (spec §4.8).
type Orchestrator struct {
	meta    *metaindex.Reader
	content *contentindex.Reader
	cfg     *config.Store
}

// New builds an Orchestrator over the service's long-lived index readers.
func New(meta *metaindex.Reader, content *contentindex.Reader, cfg *config.Store) *Orchestrator {
	return &Orchestrator{meta: meta, content: content, cfg: cfg}
}

// Search parses queryStr, resolves mode (defaulting unset/Auto per spec
// §4.8), executes against the appropriate index or indices, merges and
// ranks, and returns at most limit hits starting at offset. It never
// returns an error for a timeout: it instead returns the hits gathered
// with TimedOut set, per spec §4.8/§7 (errs.Timeout is for operations
// that cannot produce a partial result). When the deadline interrupts an
// index search, the result carries no hits at all.
func (o *Orchestrator) Search(ctx context.Context, queryStr string, limit, offset int, mode Mode) (*Result, error) {
	if strings.TrimSpace(queryStr) == "" {
		return &Result{}, nil
	}

	qcfg := o.cfg.Current().Query
	// Only a negative (unset) limit falls back to the default; a
	// caller-specified 0 means "zero hits, but still populate total"
	// (spec §4.8 boundary behavior).
	if limit < 0 {
		limit = qcfg.DefaultLimit
	}

	expr, err := Parse(queryStr)
	if err != nil {
		return nil, err
	}

	resolved := o.resolveMode(mode, expr)
	metrics.QueriesTotal.WithLabelValues(string(resolved)).Inc()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.QueryDuration, string(resolved))

	window := time.Duration(qcfg.RecencyWindowHours) * time.Hour

	var result *Result
	switch resolved {
	case ModeNameOnly:
		result, err = o.searchNameOnly(ctx, expr, limit, offset)
	case ModeContent:
		result, err = o.searchContentOnly(ctx, expr, limit, offset)
	default:
		result, err = o.searchHybrid(ctx, expr, limit, offset, qcfg.ExactNameBoost, qcfg.RecencyBoost, window, queryStr)
	}
	if err != nil {
		if ctx.Err() == nil {
			return nil, err
		}
		// The deadline passed inside an index search, which bleve reports
		// as an error without returning any hits.
		result = &Result{}
	}

	if ctx.Err() != nil {
		result.TimedOut = true
		metrics.QueryTimeoutsTotal.Inc()
	}

	// NameOnly/Content already fetched exactly the requested window from
	// bleve; re-ranking here can only reorder within it. Hybrid applies
	// the boosts itself, before windowing, so a boosted hit outside
	// either side's raw top-N can still surface.
	if resolved != ModeHybrid {
		o.applyBoosts(result.Hits, qcfg.ExactNameBoost, qcfg.RecencyBoost, window, queryStr)
	}
	return result, nil
}

// resolveMode implements spec §4.8's Auto heuristic: NameOnly unless the
// query contains a content-field term or looks like a multi-word phrase.
func (o *Orchestrator) resolveMode(mode Mode, expr Expr) Mode {
	if mode != ModeAuto && mode != "" {
		return mode
	}
	if ContainsContentTerm(expr) || IsMultiWordPhrase(expr) {
		return ModeHybrid
	}
	return ModeNameOnly
}

func (o *Orchestrator) searchNameOnly(ctx context.Context, expr Expr, limit, offset int) (*Result, error) {
	hits, total, err := o.runMetaQuery(ctx, expr, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Result{Hits: hits, Total: total}, nil
}

func (o *Orchestrator) searchContentOnly(ctx context.Context, expr Expr, limit, offset int) (*Result, error) {
	hits, total, err := o.runContentQuery(ctx, expr, limit, offset, true)
	if err != nil {
		return nil, err
	}
	return &Result{Hits: hits, Total: total}, nil
}

// searchHybrid fetches 2*limit from each side, merges by DocKey taking the
// max of the two scores, then truncates to the requested window (spec
// §4.8: "Hybrid fetches 2*limit per side before merging").
func (o *Orchestrator) searchHybrid(ctx context.Context, expr Expr, limit, offset int, alpha, beta float64, window time.Duration, queryStr string) (*Result, error) {
	fetch := 2 * limit
	if fetch <= 0 {
		fetch = 2
	}

	metaHits, metaTotal, err := o.runMetaQuery(ctx, expr, fetch, 0)
	if err != nil {
		return nil, err
	}
	contentHits, contentTotal, err := o.runContentQuery(ctx, expr, fetch, 0, true)
	if err != nil {
		return nil, err
	}

	merged := make(map[ids.DocKey]*Hit, len(metaHits)+len(contentHits))
	for i := range metaHits {
		h := metaHits[i]
		merged[h.DocKey] = &h
	}
	for i := range contentHits {
		h := contentHits[i]
		if existing, ok := merged[h.DocKey]; ok {
			if h.Score > existing.Score {
				existing.Score = h.Score
			}
			if existing.Snippet == "" {
				existing.Snippet = h.Snippet
			}
			continue
		}
		merged[h.DocKey] = &h
	}

	combined := make([]Hit, 0, len(merged))
	for _, h := range merged {
		combined = append(combined, *h)
	}
	o.applyBoosts(combined, alpha, beta, window, queryStr)

	// Neither side's raw total accounts for the other's unique docs, so
	// the larger of the two is the closest available lower bound on the
	// true union size without an exhaustive merge.
	total := metaTotal
	if contentTotal > total {
		total = contentTotal
	}

	return &Result{Hits: windowHits(combined, limit, offset), Total: total}, nil
}

func (o *Orchestrator) runMetaQuery(ctx context.Context, expr Expr, limit, offset int) ([]Hit, int64, error) {
	bq, err := ToMetaQuery(expr)
	if err != nil {
		return nil, 0, err
	}
	req := bleve.NewSearchRequestOptions(bq, limit, offset, false)
	req.Fields = []string{"name", "path", "ext", "size", "modified"}

	res, err := o.meta.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		key := docKeyFromID(h.ID)
		hits = append(hits, Hit{
			DocKey:   key,
			Score:    h.Score,
			Name:     fieldString(h.Fields, "name"),
			Path:     fieldString(h.Fields, "path"),
			Ext:      fieldString(h.Fields, "ext"),
			Size:     int64(fieldFloat(h.Fields, "size")),
			Modified: fieldTime(h.Fields, "modified"),
		})
	}
	return hits, int64(res.Total), nil
}

// runContentQuery executes expr against the content index. When
// withSnippets is true (name-only callers never call this; it's for
// content-mode and hybrid-merge completion), a highlighted fragment is
// generated and truncated to the configured snippet length.
func (o *Orchestrator) runContentQuery(ctx context.Context, expr Expr, limit, offset int, withSnippets bool) ([]Hit, int64, error) {
	bq, err := ToContentQuery(expr)
	if err != nil {
		return nil, 0, err
	}
	req := bleve.NewSearchRequestOptions(bq, limit, offset, false)
	if withSnippets {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.Fields = []string{"content"}
	}

	res, err := o.content.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	snippetMax := o.cfg.Current().Query.SnippetMaxChars
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		key := docKeyFromID(h.ID)
		snippet := ""
		if fragments, ok := h.Fragments["content"]; ok && len(fragments) > 0 {
			snippet = truncateSnippet(fragments[0], snippetMax)
		}
		var metaName, metaPath, metaExt string
		var size int64
		var modified time.Time
		if metaDoc, found, err := o.meta.Get(key); err == nil && found {
			metaName, metaPath, metaExt, size = metaDoc.Name, metaDoc.Path, metaDoc.Ext, metaDoc.Size
			modified = metaDoc.Modified
		}
		hits = append(hits, Hit{
			DocKey:   key,
			Score:    h.Score,
			Name:     metaName,
			Path:     metaPath,
			Ext:      metaExt,
			Size:     size,
			Modified: modified,
			Snippet:  snippet,
		})
	}
	return hits, int64(res.Total), nil
}

// applyBoosts applies the orchestrator-level boosts on top of the library
// BM25 score already on each hit (spec §4.8): exact whole-name match gets
// +α, and a modified time within the recency window gets +β scaled
// linearly by recency. Hits are re-sorted in place by the boosted score.
func (o *Orchestrator) applyBoosts(hits []Hit, alpha, beta float64, window time.Duration, queryStr string) {
	needle := strings.ToLower(strings.TrimSpace(queryStr))
	for i := range hits {
		if strings.ToLower(hits[i].Name) == needle {
			hits[i].Score += alpha
		}
		if !hits[i].Modified.IsZero() && window > 0 {
			age := timeSince(hits[i].Modified)
			if age >= 0 && age < window {
				hits[i].Score += beta * (1 - float64(age)/float64(window))
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func timeSince(t time.Time) time.Duration {
	return timeNow().Sub(t)
}

// timeNow is a var so tests can pin "now" without sleeping past a
// recency window.
var timeNow = time.Now

func windowHits(hits []Hit, limit, offset int) []Hit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

func truncateSnippet(s string, max int) string {
	if max <= 0 {
		max = 240
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func docKeyFromID(id string) ids.DocKey {
	key, err := ids.ParseDocKeyString(id)
	if err != nil {
		return 0
	}
	return key
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func fieldFloat(fields map[string]interface{}, name string) float64 {
	if v, ok := fields[name].(float64); ok {
		return v
	}
	return 0
}

func fieldTime(fields map[string]interface{}, name string) time.Time {
	if v, ok := fields[name].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
