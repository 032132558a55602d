// Package volume discovers local NTFS volumes, assigns stable VolumeIds,
// and resolves GUID paths and drive-letter aliases (spec §4.1).
package volume

import (
	"sort"
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// Descriptor describes one discovered volume.
type Descriptor struct {
	ID                VolumeId
	GUIDPath          string   // canonical identifier, e.g. \\?\Volume{...}\
	DriveLetters      []string // advisory aliases, e.g. ["C:"]
	ContentIndexing   bool
	IncludePaths      []string
	ExcludePaths      []string
}

// VolumeId is re-exported for package-local readability.
type VolumeId = ids.VolumeId

// rawVolume is what the platform layer reports before VolumeId assignment.
type rawVolume struct {
	guidPath     string
	driveLetters []string
}

// enumerator is overridden by platform-specific files (windows.go) and by
// tests; production code never calls it directly outside Manager.Discover.
type enumerator func() ([]rawVolume, error)

// Manager assigns and remembers VolumeIds across repeated discovery runs,
// matching volumes by their GUID path (spec §4.1: "a second discovery must
// return previously-assigned VolumeIds for still-present volumes").
type Manager struct {
	mu        sync.RWMutex
	byGUID    map[string]VolumeId
	nextID    VolumeId
	enumerate enumerator
}

// NewManager creates a Manager backed by the real platform volume
// enumerator.
func NewManager() *Manager {
	return newManagerWith(enumerateVolumes)
}

func newManagerWith(enumerate enumerator) *Manager {
	return &Manager{
		byGUID:    make(map[string]VolumeId),
		nextID:    1,
		enumerate: enumerate,
	}
}

// Discover enumerates local NTFS volumes and returns descriptors in a
// stable order (sorted by VolumeId). Still-present volumes keep the
// VolumeId assigned on a previous call; newly observed volumes get the
// next free id. IDs are never reused within the process lifetime.
func (m *Manager) Discover() ([]Descriptor, error) {
	raws, err := m.enumerate()
	if err != nil {
		return nil, errs.Wrap(errs.VolumeEnumeration, "enumerate volumes", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Descriptor, 0, len(raws))
	for _, rv := range raws {
		id, ok := m.byGUID[rv.guidPath]
		if !ok {
			id = m.nextID
			m.nextID++
			m.byGUID[rv.guidPath] = id
		}
		out = append(out, Descriptor{
			ID:           id,
			GUIDPath:     rv.guidPath,
			DriveLetters: rv.driveLetters,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Restore seeds the manager's GUID→VolumeId table from persisted volume
// state (the service passes the pairs it loaded from the single
// volumes.json file in its state directory; there is no per-volume state
// file), so that a restart preserves VolumeId stability even before the
// first Discover call completes.
func (m *Manager) Restore(guidToID map[string]VolumeId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for guid, id := range guidToID {
		m.byGUID[guid] = id
		if id >= m.nextID {
			m.nextID = id + 1
		}
	}
}

// Lookup returns the VolumeId assigned to a GUID path, if any.
func (m *Manager) Lookup(guidPath string) (VolumeId, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byGUID[guidPath]
	return id, ok
}
