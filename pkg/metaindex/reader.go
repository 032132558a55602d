package metaindex

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// Reader is the single long-lived metadata-index reader the service
// holds (spec §3/§4.3). bleve's scorch segments give lock-free MVCC
// snapshot reads, so Reader needs no explicit reload step on a read
// path — Reload exists for the degraded-mode recovery case where the
// underlying index handle itself was replaced (index corruption / *.broken
// rename, spec §7).
type Reader struct {
	index bleve.Index
}

// OpenReader opens the metadata index read-only from the caller's point
// of view (it never issues writes through this handle).
func OpenReader(path string) (*Reader, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata index at %s: %w", path, err)
	}
	return &Reader{index: idx}, nil
}

// NewReader wraps an already-open index, e.g. the Writer's own handle in
// a single-process test or a from-scratch in-memory index.
func NewReader(index bleve.Index) *Reader { return &Reader{index: index} }

func (r *Reader) Index() bleve.Index { return r.index }

func (r *Reader) Close() error { return r.index.Close() }

// Reload replaces the underlying index handle, used after a *.broken
// rename + rebuild cycle swaps in a fresh index at the same path.
func (r *Reader) Reload(path string) error {
	idx, err := bleve.Open(path)
	if err != nil {
		return err
	}
	old := r.index
	r.index = idx
	return old.Close()
}

// Get fetches one document by DocKey.
func (r *Reader) Get(key ids.DocKey) (*MetaDoc, bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{key.String()}))
	req.Fields = []string{"*"}
	req.Size = 1

	res, err := r.index.Search(req)
	if err != nil {
		return nil, false, err
	}
	if res.Total == 0 {
		return nil, false, nil
	}

	hit := res.Hits[0]
	doc := docFromFields(key, hit.Fields)
	return doc, true, nil
}

func docFromFields(key ids.DocKey, fields map[string]interface{}) *MetaDoc {
	doc := &MetaDoc{DocKey: key.String(), Type: docType, Volume: uint16(key.Volume())}
	if v, ok := fields["name"].(string); ok {
		doc.Name = v
	}
	if v, ok := fields["name_exact"].(string); ok {
		doc.NameExact = v
	}
	if v, ok := fields["file_seq"].(float64); ok {
		doc.FileSeq = uint16(v)
	}
	if v, ok := fields["created"].(string); ok {
		doc.Created, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := fields["modified"].(string); ok {
		doc.Modified, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := fields["path"].(string); ok {
		doc.Path = v
	}
	if v, ok := fields["ext"].(string); ok {
		doc.Ext = v
	}
	if v, ok := fields["size"].(float64); ok {
		doc.Size = int64(v)
	}
	if v, ok := fields["flags"].(float64); ok {
		doc.Flags = uint32(v)
	}
	return doc
}
