//go:build windows

package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metaindex"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
	"github.com/ultrasearch/ultrasearch/pkg/scheduler"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

// watchVolume owns one volume for the life of ctx: it decides
// rebuild-vs-resume against the persisted journal position (spec §4.2),
// runs the MFT bulk build through the scheduler's MetadataRebuild queue
// when the journal is stale or absent, then tails the USN journal for
// the rest of the volume's lifetime, committing every chunk through the
// scheduler's CriticalUpdate queue and routing content-eligible files
// into the content queue (spec §4.2, §4.3, §4.6).
func (s *Service) watchVolume(ctx context.Context, d volume.Descriptor, prior persistedVolume) {
	logger := log.WithVolume(uint16(d.ID))

	s.health.set(d.ID, d.GUIDPath, ntfs.Healthy, nil)

	vol, err := ntfs.OpenVolume(d.ID, devicePathFor(d))
	if err != nil {
		logger.Error().Err(err).Str("guid_path", d.GUIDPath).Msg("failed to open volume for journal access")
		s.health.set(d.ID, d.GUIDPath, ntfs.Unhealthy, err)
		return
	}
	defer vol.Close()

	current, err := vol.Position()
	if err != nil {
		logger.Error().Err(err).Msg("failed to query usn journal position")
		s.health.set(d.ID, d.GUIDPath, ntfs.Unhealthy, err)
		return
	}

	snap := s.cfg.Current()
	chunkBytes := snap.Scheduler.UsnChunkBytes
	contentEnabled := volumeContentIndexing(snap, d)

	reader := ntfs.NewMFTEnumerator(vol, chunkBytes)
	enumerator, err := ntfs.NewEnumerator(d.ID, reader, excludePatternsFor(snap, d))
	if err != nil {
		logger.Error().Err(err).Msg("failed to compile volume exclude patterns")
		return
	}

	parents := newParentTable()
	parentOf := func(key ids.DocKey) (ids.DocKey, string, bool) { return parents.get(key) }
	resolvePath := func(key ids.DocKey) string {
		path, ok := enumerator.ResolvePath(key, parentOf)
		if !ok {
			return ""
		}
		return path
	}

	stored := storedPosition(prior)
	if ntfs.NeedsRebuild(stored, current) {
		logger.Info().Msg("volume journal stale or absent, rebuilding metadata from mft")
		s.health.set(d.ID, d.GUIDPath, ntfs.Rebuilding, nil)
		if !s.rebuildVolume(ctx, d, enumerator, parents, resolvePath, logger) {
			s.health.set(d.ID, d.GUIDPath, ntfs.Unhealthy, nil)
			return
		}
		s.health.set(d.ID, d.GUIDPath, ntfs.Healthy, nil)
	}

	resumeUsn := ntfs.ResumeUsn(stored, current)
	s.tailVolume(ctx, d, vol, chunkBytes, resumeUsn, parents, resolvePath, contentEnabled, logger)
}

// rebuildVolume submits the bulk MFT enumeration as a MetadataRebuild
// task and blocks until the scheduler actually drains it (idle-gated per
// spec §4.6), reporting whether the caller should proceed to tailing.
func (s *Service) rebuildVolume(ctx context.Context, d volume.Descriptor, enumerator *ntfs.Enumerator, parents *parentTable, resolvePath func(ids.DocKey) string, logger zerolog.Logger) bool {
	seeds := func(seedCtx context.Context) (ntfs.FileMetaSeed, bool, error) {
		seed, ok, err := enumerator.Next(seedCtx)
		if err == nil && ok {
			parents.put(seed.DocKey, ids.Pack(d.ID, seed.ParentFRN), seed.Name)
		}
		return seed, ok, err
	}

	done := make(chan error, 1)
	s.scheduler.EnqueueRebuild(func(taskCtx context.Context) error {
		err := s.metaWriter.BulkBuild(taskCtx, seeds, resolvePath)
		done <- err
		return err
	})

	select {
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("mft bulk build failed")
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

// chunkVolume is the subset of ntfs's own unexported volume handle that
// tailVolume needs; declared locally since the concrete type returned by
// ntfs.OpenVolume is unexported.
type chunkVolume interface {
	Position() (ntfs.JournalPosition, error)
	ReadChunk(ctx context.Context, startUsn ids.Usn, maxBytes int) ([]ntfs.FileEvent, ids.Usn, error)
}

// tailVolume drives the USN tailer and applies each chunk in turn. It
// never reads ahead of what applyChunk has finished committing, which is
// what makes a gated-off CriticalUpdate queue throttle the tailer itself
// (spec §4.2: "a slow consumer naturally throttles reads").
func (s *Service) tailVolume(ctx context.Context, d volume.Descriptor, vol chunkVolume, chunkBytes int, resumeUsn ids.Usn, parents *parentTable, resolvePath func(ids.DocKey) string, contentEnabled bool, logger zerolog.Logger) {
	tailer := ntfs.NewTailer(d.ID, vol, chunkBytes)
	out := make(chan ntfs.Chunk)
	tailErr := make(chan error, 1)
	go func() {
		tailErr <- tailer.Tail(ctx, resumeUsn, out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-tailErr:
			if err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("usn tailer stopped")
				s.health.set(d.ID, d.GUIDPath, ntfs.Unhealthy, err)
			}
			return
		case chunk := <-out:
			if !s.applyChunk(ctx, d, chunk, parents, resolvePath, contentEnabled, logger) {
				return
			}
		}
	}
}

// applyChunk commits one tailed USN chunk to the metadata index through
// the scheduler's CriticalUpdate queue and, once committed, routes
// content-eligible files into the content queue. It returns false if the
// caller should stop tailing (context cancelled while waiting).
func (s *Service) applyChunk(ctx context.Context, d volume.Descriptor, chunk ntfs.Chunk, parents *parentTable, resolvePath func(ids.DocKey) string, contentEnabled bool, logger zerolog.Logger) bool {
	for _, ev := range chunk.Events {
		switch ev.Kind {
		case ntfs.Created:
			parents.put(ev.DocKey, ids.Pack(d.ID, ev.ParentFRN), ev.Name)
		case ntfs.Renamed:
			name := ev.NewName
			if name == "" {
				name = ev.Name
			}
			parents.put(ev.DocKey, ids.Pack(d.ID, ev.NewParentFRN), name)
		}
	}

	lookup := func(key ids.DocKey) (*metaindex.MetaDoc, bool) {
		doc, ok, err := s.metaReader.Get(key)
		if err != nil || !ok {
			return nil, false
		}
		return doc, true
	}

	committed := make(chan error, 1)
	s.scheduler.EnqueueCritical(func(taskCtx context.Context) error {
		_ = taskCtx
		err := s.metaWriter.Upsert(chunk.Events, lookup, resolvePath)
		if err == nil {
			err = s.persistVolumeState(d, chunk.JournalID, chunk.NextUsn)
		}
		committed <- err
		return err
	})

	select {
	case err := <-committed:
		if err != nil {
			logger.Error().Err(err).Msg("metadata upsert failed")
			s.health.set(d.ID, d.GUIDPath, ntfs.Degraded, err)
		} else {
			s.health.set(d.ID, d.GUIDPath, ntfs.Healthy, nil)
		}
	case <-ctx.Done():
		return false
	}

	if contentEnabled {
		s.enqueueContentCandidates(d, chunk.Events, resolvePath)
	}
	return true
}

// enqueueContentCandidates submits newly created or modified files for
// eventual content extraction, and deleted files for content-doc removal
// (spec §3: "content docs are deleted when the corresponding metadata
// doc is deleted"). Renames and bare attribute changes never touch the
// content index; a Deleted event always enqueues a delete, since the
// scheduler has no cheap way to know in advance whether a given DocKey
// was ever content-indexed, and DeleteByDocKey on an absent doc is a
// no-op.
func (s *Service) enqueueContentCandidates(d volume.Descriptor, events []ntfs.FileEvent, resolvePath func(ids.DocKey) string) {
	for _, ev := range events {
		if ev.Kind == ntfs.Deleted {
			s.scheduler.EnqueueContentDelete(d.ID, ev.DocKey)
			continue
		}
		if ev.Kind != ntfs.Created && ev.Kind != ntfs.Modified {
			continue
		}

		doc, ok, err := s.metaReader.Get(ev.DocKey)
		if err != nil || !ok || doc.Flags&ntfs.FlagDirectory != 0 {
			continue
		}

		path := resolvePath(ev.DocKey)
		if path == "" {
			continue
		}

		s.scheduler.EnqueueContent(d.ID, scheduler.PendingFile{
			DocKey: ev.DocKey,
			Path:   path,
			Ext:    extOf(path),
			Size:   doc.Size,
		})
	}
}
