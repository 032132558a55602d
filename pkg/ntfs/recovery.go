package ntfs

import "github.com/ultrasearch/ultrasearch/pkg/ids"

// StoredPosition is what was last durably committed for a volume (spec
// §3 "Volume state"): journal_id, last_usn.
type StoredPosition struct {
	JournalID uint64
	LastUsn   ids.Usn
}

// NeedsRebuild implements the gap/wrap recovery decision from spec §4.2:
// "If journal_id differs, or last_usn ∉ [first_usn, next_usn], declare
// the volume stale". The zero StoredPosition (no prior state) always
// triggers a rebuild, matching first-run behavior.
func NeedsRebuild(stored StoredPosition, current JournalPosition) bool {
	if stored.JournalID != current.JournalID {
		return true
	}
	return stored.LastUsn < current.FirstUsn || stored.LastUsn > current.NextUsn
}

// ResumeUsn returns the USN a tailer should resume from after evaluating
// recovery: the stored position when it is still valid, otherwise the
// volume's current NextUsn (spec §4.2: "begin tailing from next_usn").
func ResumeUsn(stored StoredPosition, current JournalPosition) ids.Usn {
	if NeedsRebuild(stored, current) {
		return current.NextUsn
	}
	return stored.LastUsn
}
