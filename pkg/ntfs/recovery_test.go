package ntfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

func TestNeedsRebuildOnJournalIDChange(t *testing.T) {
	stored := StoredPosition{JournalID: 1, LastUsn: 1000}
	current := JournalPosition{JournalID: 2, FirstUsn: 500, NextUsn: 2000}
	require.True(t, NeedsRebuild(stored, current))
}

func TestNeedsRebuildOnUsnBelowWindow(t *testing.T) {
	stored := StoredPosition{JournalID: 1, LastUsn: 100}
	current := JournalPosition{JournalID: 1, FirstUsn: 500, NextUsn: 2000}
	require.True(t, NeedsRebuild(stored, current))
}

func TestNeedsRebuildOnUsnAboveWindow(t *testing.T) {
	stored := StoredPosition{JournalID: 1, LastUsn: 5000}
	current := JournalPosition{JournalID: 1, FirstUsn: 500, NextUsn: 2000}
	require.True(t, NeedsRebuild(stored, current))
}

func TestNoRebuildWhenWithinWindow(t *testing.T) {
	stored := StoredPosition{JournalID: 1, LastUsn: 1000}
	current := JournalPosition{JournalID: 1, FirstUsn: 500, NextUsn: 2000}
	require.False(t, NeedsRebuild(stored, current))
}

func TestJournalWrapScenario(t *testing.T) {
	// Mirrors spec §8 scenario 4: persisted last_usn=1000, journal_id=A;
	// journal now reports first_usn=5000, next_usn=6000, journal_id=B.
	stored := StoredPosition{JournalID: 0xA, LastUsn: 1000}
	current := JournalPosition{JournalID: 0xB, FirstUsn: 5000, NextUsn: 6000}

	require.True(t, NeedsRebuild(stored, current))
	require.Equal(t, current.NextUsn, ResumeUsn(stored, current))
}

func TestResumeUsnWhenNoRebuildNeeded(t *testing.T) {
	stored := StoredPosition{JournalID: 1, LastUsn: 1500}
	current := JournalPosition{JournalID: 1, FirstUsn: 500, NextUsn: 2000}
	require.Equal(t, ids.Usn(1500), ResumeUsn(stored, current))
}
