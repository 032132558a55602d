package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/ntfs"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

// persistedVolume is the on-disk record of one volume's stable VolumeId
// assignment and USN journal position (spec §3 "Volume state": journal_id,
// last_usn), kept so a restart resumes tailing instead of re-scanning.
type persistedVolume struct {
	GUIDPath  string   `json:"guid_path"`
	VolumeID  ids.VolumeId `json:"volume_id"`
	JournalID uint64   `json:"journal_id"`
	LastUsn   ids.Usn  `json:"last_usn"`
	Built     bool     `json:"built"`
}

type volumeStateFile struct {
	Volumes []persistedVolume `json:"volumes"`
}

// volumeStateStore reads and atomically rewrites the volume-state JSON
// file under Paths.StateDir, the same write-then-rename discipline
// pkg/jobstore uses for job/result descriptors.
type volumeStateStore struct {
	mu   sync.Mutex
	path string
}

func newVolumeStateStore(stateDir string) *volumeStateStore {
	return &volumeStateStore{path: filepath.Join(stateDir, "volumes.json")}
}

func (s *volumeStateStore) load() (map[string]persistedVolume, error) {
	out := make(map[string]persistedVolume)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	var file volumeStateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for _, v := range file.Volumes {
		out[v.GUIDPath] = v
	}
	return out, nil
}

func (s *volumeStateStore) save(volumes map[string]persistedVolume) error {
	file := volumeStateFile{Volumes: make([]persistedVolume, 0, len(volumes))}
	for _, v := range volumes {
		file.Volumes = append(file.Volumes, v)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// storedPosition converts a persisted volume record into the
// ntfs.StoredPosition the recovery check compares against a volume's
// current journal coordinates.
func storedPosition(v persistedVolume) ntfs.StoredPosition {
	return ntfs.StoredPosition{JournalID: v.JournalID, LastUsn: v.LastUsn}
}

// update performs a locked load-modify-save cycle on a single volume's
// record, so concurrent watchVolume goroutines committing chunks for
// different volumes never race on the shared state file.
func (s *volumeStateStore) update(guidPath string, fn func(*persistedVolume)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	volumes, err := s.load()
	if err != nil {
		return err
	}
	v := volumes[guidPath]
	fn(&v)
	volumes[guidPath] = v
	return s.save(volumes)
}

// persistVolumeState durably commits a volume's latest journal position
// (spec §4.2: "the watcher publishes (new_last_usn, journal_id) for
// durable commit"), so a restart resumes tailing instead of re-scanning.
func (s *Service) persistVolumeState(d volume.Descriptor, journalID uint64, lastUsn ids.Usn) error {
	return s.volumeState.update(d.GUIDPath, func(v *persistedVolume) {
		v.GUIDPath = d.GUIDPath
		v.VolumeID = d.ID
		v.JournalID = journalID
		v.LastUsn = lastUsn
		v.Built = true
	})
}
