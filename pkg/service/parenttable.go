package service

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

// parentTable is the service's side table of (DocKey -> parent DocKey,
// name), filled from MFT seeds during bulk build and kept current by
// tailed Created/Renamed events. metaindex.MetaDoc only stores a file's
// already-resolved path, not its parent FRN, so live path resolution for
// USN events needs this table rather than the index itself; it is handed
// to ntfs.Enumerator.ResolvePath as the parentOf callback that method
// already expects.
type parentTable struct {
	mu   sync.RWMutex
	rows map[ids.DocKey]parentRow
}

type parentRow struct {
	parent ids.DocKey
	name   string
}

func newParentTable() *parentTable {
	return &parentTable{rows: make(map[ids.DocKey]parentRow)}
}

func (t *parentTable) put(key, parent ids.DocKey, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[key] = parentRow{parent: parent, name: name}
}

func (t *parentTable) get(key ids.DocKey) (ids.DocKey, string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[key]
	return row.parent, row.name, ok
}

// devicePathFor derives the raw device path CreateFile needs from a
// volume's canonical GUID path (e.g. \\?\Volume{guid}\); the trailing
// backslash Windows' volume enumeration APIs append must be stripped
// before the path can be opened as a device (spec §4.1/§4.2).
func devicePathFor(d volume.Descriptor) string {
	return strings.TrimSuffix(d.GUIDPath, `\`)
}

// extOf returns a path's extension, for PendingFile.Ext.
func extOf(path string) string {
	return filepath.Ext(path)
}
