// Package config loads the recognized UltraSearch configuration surface
// (spec §6) from config.toml and publishes it as an immutable snapshot that
// can be atomically swapped on reload, per the "global state" design in
// spec §9: no component reads mutable shared config directly, every task
// is handed a *Snapshot.
package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Paths holds on-disk directory locations.
type Paths struct {
	MetaIndexDir    string `toml:"meta_index_dir"`
	ContentIndexDir string `toml:"content_index_dir"`
	StateDir        string `toml:"state_dir"`
	LogDir          string `toml:"log_dir"`
	JobsDir         string `toml:"jobs_dir"`
}

// Logging holds the recognized logging keys.
type Logging struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`   // "text" | "json"
	Rotation string `toml:"rotation"` // "daily" | "size" | "never"
}

// Scheduler holds the recognized scheduler keys.
type Scheduler struct {
	IdleWarmSeconds     int   `toml:"idle_warm_seconds"`
	IdleDeepSeconds     int   `toml:"idle_deep_seconds"`
	CPUSoftLimitPct     int   `toml:"cpu_soft_limit_pct"`
	CPUHardLimitPct     int   `toml:"cpu_hard_limit_pct"`
	DiskBusyBytesPerSec int64 `toml:"disk_busy_bytes_per_s"`
	ContentBatchSize    int   `toml:"content_batch_size"`
	MaxRecordsPerTick   int   `toml:"max_records_per_tick"`
	UsnChunkBytes       int   `toml:"usn_chunk_bytes"`
}

// Indexing holds the recognized content-extraction keys.
type Indexing struct {
	MaxBytesPerFile  int64    `toml:"max_bytes_per_file"`
	MaxCharsPerFile  int      `toml:"max_chars_per_file"`
	ExtractorsEnabled []string `toml:"extractors_enabled"`
	OCREnabled       bool     `toml:"ocr_enabled"`
	OCRMaxPages      int      `toml:"ocr_max_pages"`
}

// Query holds the recognized query-orchestrator keys (spec §4.8).
type Query struct {
	DefaultLimit        int     `toml:"default_limit"`
	DefaultDeadlineMs   int     `toml:"default_deadline_ms"`
	ExactNameBoost      float64 `toml:"exact_name_boost"`
	RecencyBoost        float64 `toml:"recency_boost"`
	RecencyWindowHours  int     `toml:"recency_window_hours"`
	SnippetMaxChars     int     `toml:"snippet_max_chars"`
}

// VolumeSection holds a per-volume configuration override, keyed by GUID
// path or drive letter in the [volumes.X] table.
type VolumeSection struct {
	IncludePaths     []string `toml:"include_paths"`
	ExcludePaths     []string `toml:"exclude_paths"`
	ContentIndexing  bool     `toml:"content_indexing"`
}

// Snapshot is the fully-decoded, immutable configuration in force at a
// point in time. A reload produces a new Snapshot; nothing mutates one in
// place.
type Snapshot struct {
	Paths     Paths                    `toml:"paths"`
	Logging   Logging                  `toml:"logging"`
	Scheduler Scheduler                `toml:"scheduler"`
	Indexing  Indexing                 `toml:"indexing"`
	Query     Query                    `toml:"query"`
	Volumes   map[string]VolumeSection `toml:"volumes"`
}

// Default returns the built-in defaults described throughout spec §4 and §6.
func Default() *Snapshot {
	return &Snapshot{
		Paths: Paths{
			MetaIndexDir:    "index/meta",
			ContentIndexDir: "index/content",
			StateDir:        "volumes",
			LogDir:          "log",
			JobsDir:         "jobs",
		},
		Logging: Logging{
			Level:    "info",
			Format:   "text",
			Rotation: "daily",
		},
		Scheduler: Scheduler{
			IdleWarmSeconds:     15,
			IdleDeepSeconds:     60,
			CPUSoftLimitPct:     20,
			CPUHardLimitPct:     50,
			DiskBusyBytesPerSec: 20 * 1024 * 1024,
			ContentBatchSize:    1000,
			MaxRecordsPerTick:   10_000,
			UsnChunkBytes:       1_048_576,
		},
		Indexing: Indexing{
			MaxBytesPerFile:  32 * 1024 * 1024,
			MaxCharsPerFile:  150_000,
			ExtractorsEnabled: []string{"plaintext"},
			OCREnabled:       false,
			OCRMaxPages:      0,
		},
		Query: Query{
			DefaultLimit:       50,
			DefaultDeadlineMs:  2000,
			ExactNameBoost:     2.0,
			RecencyBoost:       0.5,
			RecencyWindowHours: 72,
			SnippetMaxChars:    240,
		},
		Volumes: map[string]VolumeSection{},
	}
}

// Load decodes a config.toml file over the defaults. A missing file is not
// an error: defaults apply.
func Load(path string) (*Snapshot, error) {
	snap := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return snap, nil
}

// Store holds an atomically-swappable current Snapshot, so that a
// ConfigSet IPC request (spec §6) can publish a new configuration without
// any reader observing a half-updated struct.
type Store struct {
	current atomic.Pointer[Snapshot]
	path    string
}

// NewStore wraps an initial snapshot in an atomically-swappable Store.
func NewStore(path string, initial *Snapshot) *Store {
	s := &Store{path: path}
	s.current.Store(initial)
	return s
}

// Current returns the snapshot in force right now.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the config file from disk and swaps it in atomically.
func (s *Store) Reload() (*Snapshot, error) {
	snap, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

// Set applies a single recognized key to a copy of the current snapshot and
// swaps it in, without touching the on-disk file. ConfigGet/ConfigSet IPC
// requests (spec §6) operate purely on the in-memory snapshot; persisting
// a change back to config.toml is left to the client issuing the request.
func (s *Store) Set(key, value string) error {
	cur := *s.current.Load()
	if err := applyKey(&cur, key, value); err != nil {
		return err
	}
	s.current.Store(&cur)
	return nil
}

func applyKey(snap *Snapshot, key, value string) error {
	switch key {
	case "scheduler.idle_warm_seconds":
		return setIntSeconds(&snap.Scheduler.IdleWarmSeconds, value)
	case "scheduler.idle_deep_seconds":
		return setIntSeconds(&snap.Scheduler.IdleDeepSeconds, value)
	case "scheduler.content_batch_size":
		return setIntSeconds(&snap.Scheduler.ContentBatchSize, value)
	case "logging.level":
		snap.Logging.Level = value
		return nil
	case "logging.format":
		snap.Logging.Format = value
		return nil
	case "query.default_limit":
		return setIntSeconds(&snap.Query.DefaultLimit, value)
	case "query.default_deadline_ms":
		return setIntSeconds(&snap.Query.DefaultDeadlineMs, value)
	default:
		return fmt.Errorf("config key not recognized: %s", key)
	}
}

func setIntSeconds(dst *int, value string) error {
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return fmt.Errorf("invalid integer value %q: %w", value, err)
	}
	*dst = n
	return nil
}

// IdleWarm returns the WarmIdle threshold as a time.Duration.
func (s Scheduler) IdleWarm() time.Duration {
	return time.Duration(s.IdleWarmSeconds) * time.Second
}

// IdleDeep returns the DeepIdle threshold as a time.Duration.
func (s Scheduler) IdleDeep() time.Duration {
	return time.Duration(s.IdleDeepSeconds) * time.Second
}
