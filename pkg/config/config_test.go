package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default().Scheduler.UsnChunkBytes, snap.Scheduler.UsnChunkBytes)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[scheduler]
content_batch_size = 250
cpu_hard_limit_pct = 40
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	snap, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250, snap.Scheduler.ContentBatchSize)
	require.Equal(t, 40, snap.Scheduler.CPUHardLimitPct)
	// Unset keys keep their defaults.
	require.Equal(t, 1_048_576, snap.Scheduler.UsnChunkBytes)
}

func TestStoreSetAndReload(t *testing.T) {
	store := NewStore("", Default())
	require.NoError(t, store.Set("scheduler.content_batch_size", "777"))
	require.Equal(t, 777, store.Current().Scheduler.ContentBatchSize)

	err := store.Set("not.a.real.key", "x")
	require.Error(t, err)
}
