package scheduler

import (
	"sync"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// PendingFile is one file awaiting content extraction, accumulated per
// volume until a batch is formed (spec §4.6: "Pending content jobs are
// accumulated per volume").
type PendingFile struct {
	DocKey ids.DocKey
	Path   string
	Ext    string
	Size   int64

	// Delete marks a DocKey whose metadata doc was just deleted: the
	// worker removes its content doc instead of extracting it (spec §3:
	// "content docs are deleted when the corresponding metadata doc is
	// deleted").
	Delete bool
}

// contentHighWaterMark is the default named in spec §5: "if the
// content-job queue exceeds a high-water mark (default 200k entries),
// new content jobs are dropped with a counter increment".
const contentHighWaterMark = 200_000

// ContentQueue accumulates pending content-extraction files per volume
// and drops new entries past the high-water mark rather than growing
// without bound. Metadata jobs (CriticalUpdate/MetadataRebuild) are
// never dropped and are modeled as plain unbounded slices by the
// Scheduler instead.
type ContentQueue struct {
	mu      sync.Mutex
	byVol   map[ids.VolumeId][]PendingFile
	total   int
	dropped int
}

func NewContentQueue() *ContentQueue {
	return &ContentQueue{byVol: make(map[ids.VolumeId][]PendingFile)}
}

// Push appends a file to its volume's pending list, or drops it and
// increments the drop counter if the queue is at capacity.
func (q *ContentQueue) Push(volumeID ids.VolumeId, f PendingFile) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.total >= contentHighWaterMark {
		q.dropped++
		return true
	}
	q.byVol[volumeID] = append(q.byVol[volumeID], f)
	q.total++
	return false
}

// Drain removes up to n pending files for a volume, returning them in
// FIFO order, for batch formation (spec §4.6: "drains up to
// content_batch_size files... into a batch payload").
func (q *ContentQueue) Drain(volumeID ids.VolumeId, n int) []PendingFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.byVol[volumeID]
	if len(pending) == 0 {
		return nil
	}
	if n > len(pending) {
		n = len(pending)
	}
	batch := pending[:n]
	q.byVol[volumeID] = pending[n:]
	q.total -= n
	return batch
}

// Volumes returns every volume with at least one pending file.
func (q *ContentQueue) Volumes() []ids.VolumeId {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ids.VolumeId, 0, len(q.byVol))
	for v, pending := range q.byVol {
		if len(pending) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Dropped returns how many entries have been dropped for exceeding the
// high-water mark.
func (q *ContentQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Len returns the total number of pending files across all volumes, for
// status reporting (spec §6.1 supplemented "content_queue_depth" field).
func (q *ContentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
