// Package contentindex stores extracted full text per file, queryable
// with relevance scoring (spec §4.4). The writer exists only inside
// worker processes; the service holds a reader only.
package contentindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
)

const docType = "contentdoc"

// ContentDoc is the content-index document shape (spec §3/§4.4).
type ContentDoc struct {
	Type    string `json:"_type"`
	DocKey  string `json:"doc_key"`
	Volume  uint16 `json:"volume"`
	Content string `json:"content"`
	Lang    string `json:"lang,omitempty"`
}

// NewMapping builds the content document mapping: content uses bleve's
// default English analyzer (tokenize/lowercase/stopwords/stem), matching
// spec §4.4.
func NewMapping() (*bleve.IndexMapping, error) {
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = "en"

	doc := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = "en"
	doc.AddFieldMappingsAt("content", contentField)

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"
	doc.AddFieldMappingsAt("doc_key", keywordField)
	doc.AddFieldMappingsAt("lang", keywordField)

	mapping.AddDocumentMapping(docType, doc)
	mapping.DefaultMapping = doc
	mapping.TypeField = "_type"
	mapping.DefaultType = docType

	return mapping, nil
}

// Writer is opened exclusively by a worker process for the duration of
// one batch (spec §4.4: "A worker opens the index exclusively, indexes
// its job batch, commits once, then closes and exits").
type Writer struct {
	index bleve.Index
}

// OpenWriter opens (or creates) the content index for a single batch.
// Callers must hold the content-writer lease (spec §4.6) before calling
// this, and must Close it promptly after committing.
func OpenWriter(path string) (*Writer, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		mapping, merr := NewMapping()
		if merr != nil {
			return nil, merr
		}
		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create content index at %s: %w", path, err)
		}
	}
	return &Writer{index: idx}, nil
}

func (w *Writer) Close() error { return w.index.Close() }

// IndexBatch upserts every doc, replacing any prior content doc for the
// same DocKey (spec §4.4: "Updates are idempotent: re-indexing the same
// DocKey replaces the prior content doc"), then commits once.
func (w *Writer) IndexBatch(docs []ContentDoc) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContentCommitDuration)

	batch := w.index.NewBatch()
	for i := range docs {
		docs[i].Type = docType
		batch.Delete(docs[i].DocKey)
		if err := batch.Index(docs[i].DocKey, &docs[i]); err != nil {
			return err
		}
	}
	if err := w.index.Batch(batch); err != nil {
		return fmt.Errorf("commit content batch: %w", err)
	}
	return nil
}

// DeleteByDocKey removes a content doc, used when its metadata doc is
// deleted or the file transitions to excluded (spec §3 lifecycle note).
func (w *Writer) DeleteByDocKey(key ids.DocKey) error {
	return w.index.Delete(key.String())
}

// Reader is the single long-lived content-index reader the service
// holds.
type Reader struct {
	index bleve.Index
}

// OpenReader opens the content index read-only from the caller's point
// of view.
func OpenReader(path string) (*Reader, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content index at %s: %w", path, err)
	}
	return &Reader{index: idx}, nil
}

func NewReader(index bleve.Index) *Reader { return &Reader{index: index} }

func (r *Reader) Index() bleve.Index { return r.index }

func (r *Reader) Close() error { return r.index.Close() }

// Reload replaces the underlying index handle after a worker has
// committed a new batch, per the manual-reload read contract (spec
// §4.3/§4.4).
func (r *Reader) Reload(path string) error {
	idx, err := bleve.Open(path)
	if err != nil {
		return err
	}
	old := r.index
	r.index = idx
	return old.Close()
}
