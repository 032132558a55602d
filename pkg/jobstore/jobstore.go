// Package jobstore persists content-extraction job/result descriptors and
// the retry/quarantine ledger the scheduler consults before respawning a
// failed batch (spec §5, §6).
package jobstore

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

var (
	bucketBatches = []byte("batches")
)

// BatchRecord tracks one content-batch job's retry/quarantine state
// across worker spawns.
type BatchRecord struct {
	BatchID       string    `json:"batch_id"`
	VolumeID      ids.VolumeId `json:"volume_id"`
	JobPath       string    `json:"job_path"`
	RetryCount    int       `json:"retry_count"`
	Quarantined   bool      `json:"quarantined"`
	QuarantineReason string `json:"quarantine_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewBatchRecord builds a fresh, non-quarantined record for a newly
// spawned batch.
func NewBatchRecord(batchID string, volumeID ids.VolumeId, jobPath string) *BatchRecord {
	now := time.Now()
	return &BatchRecord{
		BatchID:   batchID,
		VolumeID:  volumeID,
		JobPath:   jobPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store is a bbolt-backed ledger of batch records, following the
// bucket-per-entity pattern used throughout the codebase's embedded
// storage layer.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the job ledger database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open job ledger %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBatches)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put upserts a batch record.
func (s *Store) Put(rec *BatchRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBatches)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.BatchID), data)
	})
}

// Get fetches a batch record by id.
func (s *Store) Get(batchID string) (*BatchRecord, error) {
	var rec BatchRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBatches)
		data := b.Get([]byte(batchID))
		if data == nil {
			return fmt.Errorf("batch not found: %s", batchID)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// maxRetries is the default K named in spec §4.6: "after K retries
// (default 3) they are quarantined with a reason."
const maxRetries = 3

// RecordFailure increments a batch's retry count and quarantines it once
// maxRetries is exceeded (spec §4.6).
func (s *Store) RecordFailure(batchID, reason string) (*BatchRecord, error) {
	rec, err := s.Get(batchID)
	if err != nil {
		return nil, err
	}

	rec.RetryCount++
	rec.UpdatedAt = time.Now()
	if rec.RetryCount > maxRetries {
		rec.Quarantined = true
		rec.QuarantineReason = reason
	}
	if err := s.Put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListQuarantined returns every batch record currently quarantined.
func (s *Store) ListQuarantined() ([]*BatchRecord, error) {
	var out []*BatchRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBatches)
		return b.ForEach(func(k, v []byte) error {
			var rec BatchRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Quarantined {
				out = append(out, &rec)
			}
			return nil
		})
	})
	return out, err
}

// Delete removes a batch record once its job/result descriptor files
// have been cleaned up.
func (s *Store) Delete(batchID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBatches).Delete([]byte(batchID))
	})
}
