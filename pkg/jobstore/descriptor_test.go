package jobstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

func TestJobDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	job := &JobDescriptor{
		BatchID:          NewBatchID(),
		ContentIndexPath: filepath.Join(dir, "content"),
		ExtractorConfig: ExtractorConfig{
			MaxBytesPerFile: 1024,
			MaxChars:        500,
			EnabledFormats:  []string{"plaintext"},
		},
		Files: []JobFile{{DocKey: ids.Pack(1, 2), Path: `C:\a.txt`, Ext: ".txt", Size: 10}},
	}

	path, err := WriteJobDescriptor(dir, job)
	require.NoError(t, err)

	got, err := ReadJobDescriptor(path)
	require.NoError(t, err)
	require.Equal(t, job.BatchID, got.BatchID)
	require.Equal(t, job.Files[0].DocKey, got.Files[0].DocKey)
}

func TestResultDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	result := &ResultDescriptor{
		BatchID:   "batch-xyz",
		Processed: []ProcessedFile{{DocKey: ids.Pack(1, 2), Bytes: 100, Chars: 50}},
		Failed:    []FailedFile{{DocKey: ids.Pack(1, 3), Cause: "ExtractorUnsupported"}},
		Committed: true,
	}

	path, err := WriteResultDescriptor(dir, result)
	require.NoError(t, err)

	got, err := ReadResultDescriptor(path)
	require.NoError(t, err)
	require.True(t, got.Committed)
	require.Len(t, got.Processed, 1)
	require.Len(t, got.Failed, 1)
}
