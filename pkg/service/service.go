// Package service wires the long-lived UltraSearch process: volume
// discovery, NTFS watching, the metadata and content indices, the
// scheduler, and the IPC server (spec §2/§4). It follows the same
// root-handle-passed-explicitly shape as cuemby-warren's manager package:
// one struct holding every sub-component, built in dependency order by
// New, torn down in reverse by Stop.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ultrasearch/ultrasearch/pkg/config"
	"github.com/ultrasearch/ultrasearch/pkg/contentindex"
	"github.com/ultrasearch/ultrasearch/pkg/errs"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/ipc"
	"github.com/ultrasearch/ultrasearch/pkg/jobstore"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metaindex"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
	"github.com/ultrasearch/ultrasearch/pkg/query"
	"github.com/ultrasearch/ultrasearch/pkg/scheduler"
	"github.com/ultrasearch/ultrasearch/pkg/sysload"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

// Version is stamped into status reports; set at link time in a real
// release build, left as a placeholder here since UltraSearch has no
// release pipeline in scope.
var Version = "dev"

// Config holds the inputs New needs beyond the config snapshot itself:
// where to find the worker binary and what to name the IPC pipe.
type Config struct {
	ConfigPath string
	WorkerPath string
	PipeName   string
}

// Service is the long-lived root. Every sub-component lives behind a
// field here and is reachable only through Service's own methods, the
// same discipline cuemby-warren's Manager applies to raft/fsm/store/etc.
type Service struct {
	cfg *config.Store

	volumes      *volume.Manager
	volumeState  *volumeStateStore
	metaWriter   *metaindex.Writer
	metaReader   *metaindex.Reader
	contentReader *contentindex.Reader
	jobs         *jobstore.Store
	sampler      *sysload.Sampler
	scheduler    *scheduler.Scheduler
	orchestrator *query.Orchestrator

	ipcListener ipc.Listener
	ipcServer   *ipc.Server

	health *volumeHealthTracker

	startedAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// volumeHealthTracker records each watched volume's tailer health (spec
// §6.1 supplement), updated from watchVolume/tailVolume/applyChunk and
// surfaced read-only through Status.
type volumeHealthTracker struct {
	mu  sync.Mutex
	byV map[ids.VolumeId]*volumeHealthEntry
}

type volumeHealthEntry struct {
	name      string
	state     ntfs.Health
	lastError string
}

func newVolumeHealthTracker() *volumeHealthTracker {
	return &volumeHealthTracker{byV: make(map[ids.VolumeId]*volumeHealthEntry)}
}

func (t *volumeHealthTracker) set(id ids.VolumeId, name string, state ntfs.Health, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byV[id]
	if !ok {
		e = &volumeHealthEntry{}
		t.byV[id] = e
	}
	if name != "" {
		e.name = name
	}
	e.state = state
	if err != nil {
		e.lastError = err.Error()
	}
}

func (t *volumeHealthTracker) snapshot() []ipc.VolumeHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ipc.VolumeHealth, 0, len(t.byV))
	for _, e := range t.byV {
		out = append(out, ipc.VolumeHealth{Name: e.name, State: e.state.String(), LastError: e.lastError})
	}
	return out
}

// New wires every component in dependency order, returning on the first
// failure (spec §2: indices and scheduler all live in one process).
func New(runCfg Config) (*Service, error) {
	snap, err := config.Load(runCfg.ConfigPath)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "load config", err)
	}
	cfgStore := config.NewStore(runCfg.ConfigPath, snap)

	for _, dir := range []string{snap.Paths.StateDir, snap.Paths.LogDir, snap.Paths.JobsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.IoFatal, fmt.Sprintf("create directory %s", dir), err)
		}
	}

	metaWriter, err := openMetaWriter(snap.Paths.MetaIndexDir)
	if err != nil {
		return nil, err
	}
	metaReader := metaindex.NewReader(metaWriter.Index())

	contentReader, err := openOrInitContentReader(snap.Paths.ContentIndexDir)
	if err != nil {
		metaWriter.Close()
		return nil, err
	}

	jobs, err := jobstore.Open(filepath.Join(snap.Paths.StateDir, "jobstore.db"))
	if err != nil {
		metaWriter.Close()
		contentReader.Close()
		return nil, errs.Wrap(errs.IoFatal, "open job ledger", err)
	}

	sampler := sysload.NewSampler(snap.Scheduler.DiskBusyBytesPerSec)
	spawner := NewProcessSpawner(runCfg.WorkerPath)
	sched := scheduler.New(cfgStore, sampler, spawner, jobs)

	orchestrator := query.New(metaReader, contentReader, cfgStore)

	pipeName := runCfg.PipeName
	if pipeName == "" {
		pipeName = ipc.DefaultPipeName
	}
	listener, err := ipc.ListenPipe(pipeName)
	if err != nil {
		jobs.Close()
		metaWriter.Close()
		contentReader.Close()
		return nil, errs.Wrap(errs.IoFatal, "listen on ipc pipe", err)
	}

	svc := &Service{
		cfg:           cfgStore,
		volumes:       volume.NewManager(),
		volumeState:   newVolumeStateStore(snap.Paths.StateDir),
		metaWriter:    metaWriter,
		metaReader:    metaReader,
		contentReader: contentReader,
		jobs:          jobs,
		sampler:       sampler,
		scheduler:     sched,
		orchestrator:  orchestrator,
		ipcListener:   listener,
		health:        newVolumeHealthTracker(),
	}
	svc.ipcServer = ipc.NewServer(listener, &ipcHandler{svc: svc})

	return svc, nil
}

func openMetaWriter(path string) (*metaindex.Writer, error) {
	w, err := metaindex.OpenWriter(path)
	if err != nil {
		if renameErr := metaindex.RenameBroken(path); renameErr == nil {
			w, err = metaindex.OpenWriter(path)
		}
	}
	if err != nil {
		return nil, errs.Wrap(errs.IndexCorrupt, "open metadata index", err)
	}
	return w, nil
}

// openOrInitContentReader opens the content index read-only, creating an
// empty one first if none exists yet (a fresh install has no worker-built
// index until the first batch commits).
func openOrInitContentReader(path string) (*contentindex.Reader, error) {
	r, err := contentindex.OpenReader(path)
	if err == nil {
		return r, nil
	}
	w, werr := contentindex.OpenWriter(path)
	if werr != nil {
		return nil, errs.Wrap(errs.IndexCorrupt, "initialize content index", werr)
	}
	if cerr := w.Close(); cerr != nil {
		return nil, errs.Wrap(errs.IoFatal, "close freshly created content index", cerr)
	}
	r, err = contentindex.OpenReader(path)
	if err != nil {
		return nil, errs.Wrap(errs.IndexCorrupt, "open newly created content index", err)
	}
	return r, nil
}

// Start discovers volumes, launches their watchers, starts the scheduler,
// and serves IPC requests. It returns once everything is running; the
// caller keeps the process alive (cmd/ultrasearch-service's main blocks on
// a signal channel).
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startedAt = time.Now()

	persisted, err := s.volumeState.load()
	if err != nil {
		log.WithComponent("service").Warn().Err(err).Msg("failed to load volume state, starting fresh")
		persisted = map[string]persistedVolume{}
	}
	guidToID := make(map[string]volume.VolumeId, len(persisted))
	for guid, v := range persisted {
		guidToID[guid] = v.VolumeID
	}
	s.volumes.Restore(guidToID)

	descriptors, err := s.volumes.Discover()
	if err != nil {
		cancel()
		return errs.Wrap(errs.VolumeEnumeration, "discover volumes", err)
	}
	metrics.VolumesTotal.WithLabelValues("healthy").Set(float64(len(descriptors)))

	s.scheduler.Start(runCtx)

	for _, d := range descriptors {
		d := d
		prior := persisted[d.GUIDPath]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.watchVolume(runCtx, d, prior)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.ipcServer.Serve(runCtx); err != nil {
			log.WithComponent("service").Error().Err(err).Msg("ipc server exited")
		}
	}()

	return nil
}

// Stop tears down in reverse wiring order: IPC first (stop accepting new
// work), then watchers/scheduler, then the indices and job store.
func (s *Service) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.ipcListener.Close()
	s.scheduler.Stop()
	s.wg.Wait()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(s.metaWriter.Close())
	record(s.contentReader.Close())
	record(s.jobs.Close())
	return firstErr
}

func (s *Service) status() *ipc.StatusInfo {
	metaDocs, _ := s.metaReader.Index().DocCount()
	contentDocs, _ := s.contentReader.Index().DocCount()

	volumes := s.health.snapshot()

	var quarantined []ipc.QuarantineEntry
	if recs, err := s.jobs.ListQuarantined(); err == nil {
		quarantined = make([]ipc.QuarantineEntry, 0, len(recs))
		for _, rec := range recs {
			quarantined = append(quarantined, ipc.QuarantineEntry{Path: rec.JobPath, Reason: rec.QuarantineReason})
		}
	} else {
		log.WithComponent("service").Warn().Err(err).Msg("failed to list quarantined batches")
	}

	return &ipc.StatusInfo{
		Version:           Version,
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
		Volumes:           volumes,
		MetadataDocsTotal: int64(metaDocs),
		ContentDocsTotal:  int64(contentDocs),
		SchedulerIdle:     s.scheduler.IdleState().String(),
		QueueDepth:        s.scheduler.ContentQueueDepth(),
		Quarantined:       quarantined,
	}
}

func (s *Service) configGet(key string) (string, error) {
	snap := s.cfg.Current()
	switch key {
	case "scheduler.idle_warm_seconds":
		return fmt.Sprint(snap.Scheduler.IdleWarmSeconds), nil
	case "scheduler.idle_deep_seconds":
		return fmt.Sprint(snap.Scheduler.IdleDeepSeconds), nil
	case "scheduler.content_batch_size":
		return fmt.Sprint(snap.Scheduler.ContentBatchSize), nil
	case "logging.level":
		return snap.Logging.Level, nil
	case "logging.format":
		return snap.Logging.Format, nil
	case "query.default_limit":
		return fmt.Sprint(snap.Query.DefaultLimit), nil
	case "query.default_deadline_ms":
		return fmt.Sprint(snap.Query.DefaultDeadlineMs), nil
	default:
		return "", errs.New(errs.ConfigInvalid, "config key not recognized: "+key)
	}
}

func volumeContentIndexing(snap *config.Snapshot, d volume.Descriptor) bool {
	if section, ok := snap.Volumes[d.GUIDPath]; ok {
		return section.ContentIndexing
	}
	for _, letter := range d.DriveLetters {
		if section, ok := snap.Volumes[letter]; ok {
			return section.ContentIndexing
		}
	}
	return d.ContentIndexing
}

// excludePatternsFor resolves a volume's exclude-path patterns from its
// [volumes.X] config override, by GUID path or drive letter, falling back
// to whatever the descriptor itself carries.
func excludePatternsFor(snap *config.Snapshot, d volume.Descriptor) []string {
	if section, ok := snap.Volumes[d.GUIDPath]; ok && len(section.ExcludePaths) > 0 {
		return section.ExcludePaths
	}
	for _, letter := range d.DriveLetters {
		if section, ok := snap.Volumes[letter]; ok && len(section.ExcludePaths) > 0 {
			return section.ExcludePaths
		}
	}
	return d.ExcludePaths
}
