package metaindex

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
)

// flushBatchSize is the document count at which BulkBuild commits a
// checkpoint. Upsert does not use either constant: it commits the event
// slice it is given as one batch, and flushInterval is not read by this
// package.
const (
	flushBatchSize = 5000
	flushInterval  = 5 * time.Second
)

// Writer is the metadata index's single writer, owned exclusively by the
// service (spec §3: "The service exclusively owns the metadata-index
// writer").
type Writer struct {
	index bleve.Index
	path  string
}

// OpenWriter opens an existing metadata index for writing, or creates one
// at path if absent. On index corruption the caller is expected to have
// already renamed the directory to *.broken per spec §7; OpenWriter
// itself only distinguishes "missing" from "present".
func OpenWriter(path string) (*Writer, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		mapping, merr := NewMapping()
		if merr != nil {
			return nil, merr
		}
		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create metadata index at %s: %w", path, err)
		}
	}
	return &Writer{index: idx, path: path}, nil
}

func (w *Writer) Close() error { return w.index.Close() }

// Index exposes the underlying bleve.Index for building a Reader.
func (w *Writer) Index() bleve.Index { return w.index }

// BulkBuild consumes a finite seed sequence (typically from
// ntfs.Enumerator) and commits it in fixed-size batches, implementing the
// "bulk-build" write mode from spec §4.3.
func (w *Writer) BulkBuild(ctx context.Context, seeds func(context.Context) (ntfs.FileMetaSeed, bool, error), resolvePath func(ids.DocKey) string) error {
	logger := log.WithComponent("metaindex")
	batch := w.index.NewBatch()
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		seed, ok, err := seeds(ctx)
		if err != nil {
			return fmt.Errorf("enumerate seed: %w", err)
		}
		if !ok {
			break
		}

		path := resolvePath(seed.DocKey)
		doc := NewMetaDoc(seed.DocKey, seed.FileId, seed.Name, path, ext(seed.Name), seed.Size, seed.Created, seed.Modified, seed.Flags)
		if err := batch.Index(seed.DocKey.String(), doc); err != nil {
			return err
		}
		count++

		if count >= flushBatchSize {
			if err := w.commit(batch); err != nil {
				return err
			}
			logger.Debug().Int("docs", count).Msg("metadata bulk build checkpoint")
			batch = w.index.NewBatch()
			count = 0
		}
	}

	if count > 0 {
		return w.commit(batch)
	}
	return nil
}

// Upsert applies an ordered slice of USN-derived events, translating each
// into add / delete-then-add / delete per spec §4.3, and commits as one
// batch. Per-volume ordering is the caller's responsibility: Upsert
// assumes events arrive already in USN order for a given volume.
func (w *Writer) Upsert(events []ntfs.FileEvent, lookup func(ids.DocKey) (*MetaDoc, bool), resolvePath func(ids.DocKey) string) error {
	if len(events) == 0 {
		return nil
	}

	batch := w.index.NewBatch()
	for _, ev := range events {
		id := ev.DocKey.String()

		switch ev.Kind {
		case ntfs.Created:
			path := resolvePath(ev.DocKey)
			doc := NewMetaDoc(ev.DocKey, ev.FileId, ev.Name, path, ext(ev.Name), 0, time.Now(), time.Now(), 0)
			batch.Delete(id)
			if err := batch.Index(id, doc); err != nil {
				return err
			}
		case ntfs.Deleted:
			batch.Delete(id)
		case ntfs.Renamed:
			existing, _ := lookup(ev.DocKey)
			path := resolvePath(ev.DocKey)
			name := ev.NewName
			if name == "" {
				name = ev.Name
			}
			var size int64
			created := time.Now()
			if existing != nil {
				size = existing.Size
				created = existing.Created
			}
			doc := NewMetaDoc(ev.DocKey, ev.FileId, name, path, ext(name), size, created, time.Now(), 0)
			batch.Delete(id)
			if err := batch.Index(id, doc); err != nil {
				return err
			}
		case ntfs.Modified, ntfs.BasicInfoChanged:
			existing, ok := lookup(ev.DocKey)
			if !ok {
				continue
			}
			if existing.FileSeq != ev.FileId.SequenceNumber() {
				// The MFT record was reused since this doc was indexed:
				// this event belongs to a different file than the one
				// the existing doc describes. Delete the stale doc
				// rather than copying its fields forward; a Created
				// event for the new file will re-add it (spec §4.3).
				batch.Delete(id)
				continue
			}
			existing.Modified = time.Now()
			batch.Delete(id)
			if err := batch.Index(id, existing); err != nil {
				return err
			}
		}
	}

	return w.commit(batch)
}

func (w *Writer) commit(batch *bleve.Batch) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MetadataCommitDuration)

	if err := w.index.Batch(batch); err != nil {
		return fmt.Errorf("commit metadata batch: %w", err)
	}
	return nil
}

func ext(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
		if name[i] == '\\' || name[i] == '/' {
			break
		}
	}
	return ""
}

// RenameBroken renames a corrupt index directory to *.broken and
// triggers rebuild from MFT (spec §7: "Index corruption on startup
// renames the index directory to *.broken").
func RenameBroken(path string) error {
	return os.Rename(path, path+".broken")
}
