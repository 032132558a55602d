// Package ntfs drives the two MFT/USN operations UltraSearch needs per
// volume: bulk MFT enumeration for initial build and recovery, and
// continuous USN journal tailing (spec §4.2).
package ntfs

import (
	"time"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// FileMetaSeed is one record produced by MFT enumeration.
type FileMetaSeed struct {
	DocKey    ids.DocKey
	FileId    ids.FileId // raw, unmasked file reference number (carries the reuse sequence number)
	ParentFRN ids.FileId
	Name      string
	Flags     uint32
	Size      int64
	Created   time.Time
	Modified  time.Time
}

const (
	// FlagDirectory marks a FileMetaSeed/FileEvent as a directory record.
	FlagDirectory uint32 = 1 << 0
	// FlagReparsePoint marks a reparse point (junction/symlink).
	FlagReparsePoint uint32 = 1 << 1
)

// EventKind discriminates the FileEvent union (spec §4.2).
type EventKind int

const (
	Created EventKind = iota
	Deleted
	Modified
	Renamed
	BasicInfoChanged
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "Created"
	case Deleted:
		return "Deleted"
	case Modified:
		return "Modified"
	case Renamed:
		return "Renamed"
	case BasicInfoChanged:
		return "BasicInfoChanged"
	default:
		return "Unknown"
	}
}

// FileEvent is one USN-journal-derived change, translated from a raw USN
// record into the union described in spec §4.2.
type FileEvent struct {
	Kind         EventKind
	DocKey       ids.DocKey
	FileId       ids.FileId // raw, unmasked file reference number (carries the reuse sequence number)
	ParentFRN    ids.FileId
	Name         string // Created
	OldName      string // Renamed
	NewName      string // Renamed
	NewParentFRN ids.FileId
	Usn          ids.Usn
}

// JournalPosition is a volume's current USN journal coordinates, as
// reported by FSCTL_QUERY_USN_JOURNAL.
type JournalPosition struct {
	JournalID uint64
	FirstUsn  ids.Usn
	NextUsn   ids.Usn
}

// Health is the tailer's current operating state, surfaced in status
// reports (spec §6.1 supplemented feature).
type Health int

const (
	Healthy Health = iota
	Degraded
	Rebuilding
	Unhealthy
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Rebuilding:
		return "rebuilding"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}
