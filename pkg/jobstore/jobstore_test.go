package jobstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	rec := NewBatchRecord("batch-1", 1, "/jobs/batch-1.job")
	require.NoError(t, store.Put(rec))

	got, err := store.Get("batch-1")
	require.NoError(t, err)
	require.Equal(t, rec.BatchID, got.BatchID)
	require.False(t, got.Quarantined)
}

func TestRecordFailureQuarantinesAfterMaxRetries(t *testing.T) {
	store := openTestStore(t)
	rec := NewBatchRecord("batch-2", 1, "/jobs/batch-2.job")
	require.NoError(t, store.Put(rec))

	var updated *BatchRecord
	var err error
	for i := 0; i < maxRetries; i++ {
		updated, err = store.RecordFailure("batch-2", "worker crashed")
		require.NoError(t, err)
		require.False(t, updated.Quarantined)
	}

	updated, err = store.RecordFailure("batch-2", "worker crashed")
	require.NoError(t, err)
	require.True(t, updated.Quarantined)
	require.Equal(t, "worker crashed", updated.QuarantineReason)
}

func TestListQuarantined(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(NewBatchRecord("ok", 1, "/jobs/ok.job")))

	quarantined := NewBatchRecord("bad", 1, "/jobs/bad.job")
	quarantined.Quarantined = true
	quarantined.QuarantineReason = "timeout"
	require.NoError(t, store.Put(quarantined))

	list, err := store.ListQuarantined()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bad", list[0].BatchID)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(NewBatchRecord("gone", 1, "/jobs/gone.job")))
	require.NoError(t, store.Delete("gone"))

	_, err := store.Get("gone")
	require.Error(t, err)
}
