package ntfs

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/metrics"
)

// chunkReader is the platform boundary for USN journal tailing. windows.go
// implements it against FSCTL_QUERY_USN_JOURNAL/FSCTL_READ_USN_JOURNAL;
// tests substitute a fake.
type chunkReader interface {
	Position() (JournalPosition, error)
	ReadChunk(ctx context.Context, startUsn ids.Usn, maxBytes int) (events []FileEvent, nextUsn ids.Usn, err error)
}

// maxBackoff is the cap named in spec §4.2: "retried with exponential
// backoff (cap ~30s)".
const maxBackoff = 30 * time.Second

// persistentFailureThreshold marks a volume unhealthy once this many
// consecutive chunk reads have failed.
const persistentFailureThreshold = 8

// Tailer continuously reads one volume's USN journal and publishes
// FileEvent batches, advancing last_usn only after the owning component
// durably commits a chunk (spec §4.2).
type Tailer struct {
	volumeID    ids.VolumeId
	volumeLabel string
	source      chunkReader
	chunkSize   int
	logger      zerolog.Logger

	health          Health
	consecutiveErrs int

	// initialBackoff and failThreshold default to production values but
	// are overridable in-package so tests don't wait on a 30s cap.
	initialBackoff time.Duration
	failThreshold  int
	idleDelay      time.Duration
}

// NewTailer builds a Tailer over the given chunk reader, reading at most
// chunkSize bytes per USN journal read (default 1 MiB per spec §4.2).
func NewTailer(volumeID ids.VolumeId, source chunkReader, chunkSize int) *Tailer {
	if chunkSize <= 0 {
		chunkSize = 1_048_576
	}
	return &Tailer{
		volumeID:       volumeID,
		volumeLabel:    strconv.Itoa(int(volumeID)),
		source:         source,
		chunkSize:      chunkSize,
		logger:         log.WithVolume(uint16(volumeID)),
		health:         Healthy,
		initialBackoff: time.Second,
		failThreshold:  persistentFailureThreshold,
		idleDelay:      time.Second,
	}
}

// Health reports the tailer's current operating state.
func (t *Tailer) Health() Health { return t.health }

// Chunk is one commit unit: the events read and the USN/journal_id to
// publish once the caller has durably committed them (spec §4.2: "After
// each successfully consumed chunk the watcher publishes (new_last_usn,
// journal_id) for durable commit").
type Chunk struct {
	Events    []FileEvent
	NextUsn   ids.Usn
	JournalID uint64
}

// Tail reads chunks starting at startUsn and sends each to out until the
// context is cancelled or a persistent failure marks the volume
// unhealthy. Tail never advances past a chunk the caller has not yet
// received, so a slow consumer naturally throttles reads (spec §4.6
// backpressure: "causing USN tailer to pause naturally").
func (t *Tailer) Tail(ctx context.Context, startUsn ids.Usn, out chan<- Chunk) error {
	usn := startUsn
	backoff := t.initialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pos, err := t.source.Position()
		if err == nil {
			var events []FileEvent
			var nextUsn ids.Usn
			events, nextUsn, err = t.source.ReadChunk(ctx, usn, t.chunkSize)
			if err == nil {
				t.onSuccess(&backoff)

				if len(events) == 0 {
					if !t.sleep(ctx, t.idleDelay) {
						return ctx.Err()
					}
					continue
				}

				metrics.UsnRecordsConsumed.WithLabelValues(t.volumeLabel).Add(float64(len(events)))
				metrics.TailerLastUsn.WithLabelValues(t.volumeLabel).Set(float64(nextUsn))
				chunk := Chunk{Events: events, NextUsn: nextUsn, JournalID: pos.JournalID}
				select {
				case out <- chunk:
					usn = nextUsn
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
		}

		if !t.onFailure(ctx, &backoff, err) {
			return err
		}
	}
}

func (t *Tailer) onSuccess(backoff *time.Duration) {
	t.consecutiveErrs = 0
	t.health = Healthy
	*backoff = t.initialBackoff
}

// onFailure applies exponential backoff without advancing last_usn, and
// marks the volume Unhealthy after persistentFailureThreshold consecutive
// failures (spec §4.2: "Persistent failure marks the volume unhealthy and
// surfaces a status signal; other volumes continue"). It returns false
// once the caller should stop tailing this volume.
func (t *Tailer) onFailure(ctx context.Context, backoff *time.Duration, err error) bool {
	t.consecutiveErrs++
	metrics.JournalGapsTotal.WithLabelValues(t.volumeLabel).Inc()

	if t.consecutiveErrs >= t.failThreshold {
		t.health = Unhealthy
		t.logger.Error().Err(err).Int("consecutive_errors", t.consecutiveErrs).
			Msg("usn tailer marking volume unhealthy after repeated failures")
		return false
	}

	t.health = Degraded
	t.logger.Warn().Err(err).Dur("backoff", *backoff).Msg("usn journal read failed, retrying")

	if !t.sleep(ctx, *backoff) {
		return false
	}

	*backoff *= 2
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}
	return true
}

func (t *Tailer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
