package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ultrasearch/ultrasearch/pkg/config"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/jobstore"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
)

// tickInterval is the 1s sampling period named in spec §4.6.
const tickInterval = time.Second

// shutdownGrace is the default grace period from spec §4.6:
// "waits up to a grace period (default 10s) before escalating."
const shutdownGrace = 10 * time.Second

// InputSampler reports the inputs sampled once per tick (spec §4.6): how
// long the user has been idle, in seconds, and the current system load.
type InputSampler interface {
	IdleSeconds() float64
	Load() SystemLoad
}

// WorkerSpawner launches a content-extraction worker for a batch and
// blocks until it exits, returning its result descriptor path. The
// scheduler never touches process details directly, which keeps it
// testable without a real worker binary.
type WorkerSpawner interface {
	Spawn(ctx context.Context, jobPath string) (resultPath string, err error)
}

// Scheduler drives the idle/load-gated tick loop over three job queues
// (spec §4.6).
type Scheduler struct {
	cfg     *config.Store
	sampler InputSampler
	spawner WorkerSpawner
	jobs    *jobstore.Store
	lease   *WriterLease
	content *ContentQueue
	logger  zerolog.Logger

	gate      *Gate
	lastIdle  IdleState
	stopCh    chan struct{}
	doneCh    chan struct{}

	// critical/rebuild hold metadata-side job kinds, which spec §5 says
	// are never dropped; plain unbounded slices model that directly.
	critical []func(context.Context) error
	rebuild  []func(context.Context) error
}

// New builds a Scheduler.
func New(cfg *config.Store, sampler InputSampler, spawner WorkerSpawner, jobs *jobstore.Store) *Scheduler {
	snap := cfg.Current()
	return &Scheduler{
		cfg:     cfg,
		sampler: sampler,
		spawner: spawner,
		jobs:    jobs,
		lease:   NewWriterLease(1),
		content: NewContentQueue(),
		logger:  log.WithComponent("scheduler"),
		gate:    NewGate(float64(snap.Scheduler.CPUSoftLimitPct), float64(snap.Scheduler.CPUHardLimitPct)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// IdleState reports the idle classification sampled on the most recent
// tick, for status reporting (spec §6.1).
func (s *Scheduler) IdleState() IdleState {
	return s.lastIdle
}

// ContentQueueDepth reports how many files are currently pending content
// extraction across all volumes.
func (s *Scheduler) ContentQueueDepth() int {
	return s.content.Len()
}

// EnqueueContent submits a file for eventual content extraction.
func (s *Scheduler) EnqueueContent(volumeID ids.VolumeId, f PendingFile) {
	if dropped := s.content.Push(volumeID, f); dropped {
		metrics.JobsAdmittedTotal.WithLabelValues("content_dropped").Inc()
	}
}

// EnqueueContentDelete submits a DocKey for content-doc removal on the
// next batch for its volume, used when the corresponding metadata doc
// has just been deleted (spec §3).
func (s *Scheduler) EnqueueContentDelete(volumeID ids.VolumeId, key ids.DocKey) {
	if dropped := s.content.Push(volumeID, PendingFile{DocKey: key, Delete: true}); dropped {
		metrics.JobsAdmittedTotal.WithLabelValues("content_dropped").Inc()
	}
}

// EnqueueCritical submits a CriticalUpdate task (delete/rename/attribute
// change), which is always admitted regardless of idle state (spec
// §4.6).
func (s *Scheduler) EnqueueCritical(task func(context.Context) error) {
	s.critical = append(s.critical, task)
}

// EnqueueRebuild submits a MetadataRebuild task (full volume rescan).
func (s *Scheduler) EnqueueRebuild(task func(context.Context) error) {
	s.rebuild = append(s.rebuild, task)
}

// Start runs the tick loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the loop to stop and waits up to shutdownGrace before
// returning (spec §4.6 cancellation policy).
func (s *Scheduler) Stop() {
	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(shutdownGrace):
		s.logger.Warn().Msg("scheduler shutdown grace period elapsed, escalating")
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	metrics.SchedulerTicksTotal.Inc()

	sched := s.cfg.Current().Scheduler
	idle := Classify(s.sampler.IdleSeconds(), float64(sched.IdleWarmSeconds), float64(sched.IdleDeepSeconds))
	s.lastIdle = idle
	load := s.sampler.Load()
	admitted := s.gate.Tick(idle, load)

	if admitted[CriticalUpdate] {
		s.drainMetadataTasks(ctx, &s.critical, CriticalUpdate)
	}
	if admitted[MetadataRebuild] {
		s.drainMetadataTasks(ctx, &s.rebuild, MetadataRebuild)
	}
	if admitted[ContentBatch] {
		s.formAndSpawnBatches(ctx)
	}
}

func (s *Scheduler) drainMetadataTasks(ctx context.Context, tasks *[]func(context.Context) error, kind JobKind) {
	pending := *tasks
	*tasks = nil

	for _, task := range pending {
		metrics.JobsAdmittedTotal.WithLabelValues(kind.String()).Inc()
		if err := task(ctx); err != nil {
			s.logger.Error().Err(err).Str("kind", kind.String()).Msg("metadata task failed")
		}
	}
}

func (s *Scheduler) formAndSpawnBatches(ctx context.Context) {
	batchSize := s.cfg.Current().Scheduler.ContentBatchSize

	for _, volumeID := range s.content.Volumes() {
		files := s.content.Drain(volumeID, batchSize)
		if len(files) == 0 {
			continue
		}

		if err := s.lease.TryAcquire(); err != nil {
			// No writer slot free this tick; put the files back for the
			// next one rather than dropping them.
			for _, f := range files {
				s.content.Push(volumeID, f)
			}
			return
		}

		metrics.JobsAdmittedTotal.WithLabelValues(ContentBatch.String()).Inc()
		metrics.ContentBatchesSpawned.Inc()
		go s.runBatch(ctx, volumeID, files)
	}
}

func volumeLabel(v ids.VolumeId) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (s *Scheduler) runBatch(ctx context.Context, volumeID ids.VolumeId, files []PendingFile) {
	defer s.lease.Release()

	snap := s.cfg.Current()
	batchID := jobstore.NewBatchID()
	logger := log.WithBatch(batchID)

	jobFiles := make([]jobstore.JobFile, 0, len(files))
	deletes := make([]ids.DocKey, 0)
	for _, f := range files {
		if f.Delete {
			deletes = append(deletes, f.DocKey)
			continue
		}
		jobFiles = append(jobFiles, jobstore.JobFile{DocKey: f.DocKey, Path: f.Path, Ext: f.Ext, Size: f.Size})
	}

	job := &jobstore.JobDescriptor{
		BatchID:          batchID,
		ContentIndexPath: snap.Paths.ContentIndexDir,
		ExtractorConfig: jobstore.ExtractorConfig{
			MaxBytesPerFile: snap.Indexing.MaxBytesPerFile,
			MaxChars:        snap.Indexing.MaxCharsPerFile,
			OCREnabled:      snap.Indexing.OCREnabled,
			OCRMaxPages:     snap.Indexing.OCRMaxPages,
			EnabledFormats:  snap.Indexing.ExtractorsEnabled,
		},
		Files:   jobFiles,
		Deletes: deletes,
	}

	jobPath, err := jobstore.WriteJobDescriptor(snap.Paths.JobsDir, job)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write job descriptor")
		return
	}

	rec := jobstore.NewBatchRecord(batchID, volumeID, jobPath)
	if err := s.jobs.Put(rec); err != nil {
		logger.Error().Err(err).Msg("failed to record batch")
	}

	label := volumeLabel(volumeID)

	var resultPath string
	for {
		timer := metrics.NewTimer()
		var spawnErr error
		resultPath, spawnErr = s.spawner.Spawn(ctx, jobPath)
		timer.ObserveDuration(metrics.WorkerDuration)
		if spawnErr == nil {
			break
		}

		metrics.WorkerFailuresTotal.WithLabelValues(label).Inc()
		failed, recErr := s.jobs.RecordFailure(batchID, spawnErr.Error())
		if recErr != nil {
			logger.Error().Err(recErr).Msg("failed to record batch failure")
			return
		}
		if failed.Quarantined {
			metrics.JobsQuarantinedTotal.WithLabelValues(failed.QuarantineReason).Inc()
			logger.Warn().Str("reason", failed.QuarantineReason).Msg("batch quarantined after exhausting retries")
			return
		}
		logger.Warn().Err(spawnErr).Int("retry_count", failed.RetryCount).Msg("worker spawn failed, retrying batch")
	}

	result, err := jobstore.ReadResultDescriptor(resultPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read result descriptor")
		return
	}

	logger.Info().
		Int("processed", len(result.Processed)).
		Int("failed", len(result.Failed)).
		Bool("committed", result.Committed).
		Msg("content batch finished")

	if err := s.jobs.Delete(batchID); err != nil {
		logger.Warn().Err(err).Msg("failed to clean up batch record")
	}
}
