package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdmitCriticalUpdateAlwaysAllowedUnderHardGate(t *testing.T) {
	require.True(t, admit(CriticalUpdate, Active, SystemLoad{CPUPercent: 45}, 20, 50))
	require.True(t, admit(CriticalUpdate, DeepIdle, SystemLoad{CPUPercent: 10}, 20, 50))
}

func TestAdmitBlocksEverythingAboveHardGate(t *testing.T) {
	require.False(t, admit(CriticalUpdate, Active, SystemLoad{CPUPercent: 51}, 20, 50))
	require.False(t, admit(MetadataRebuild, DeepIdle, SystemLoad{CPUPercent: 51}, 20, 50))
}

func TestAdmitMetadataRebuildBlockedWhenActive(t *testing.T) {
	require.False(t, admit(MetadataRebuild, Active, SystemLoad{}, 20, 50))
	require.True(t, admit(MetadataRebuild, WarmIdle, SystemLoad{}, 20, 50))
	require.True(t, admit(MetadataRebuild, DeepIdle, SystemLoad{}, 20, 50))
}

func TestAdmitContentBatchRequiresDeepIdleLowCpuAndNoDiskBusy(t *testing.T) {
	require.False(t, admit(ContentBatch, WarmIdle, SystemLoad{CPUPercent: 5}, 20, 50))
	require.False(t, admit(ContentBatch, DeepIdle, SystemLoad{CPUPercent: 25}, 20, 50))
	require.False(t, admit(ContentBatch, DeepIdle, SystemLoad{CPUPercent: 5, DiskBusy: true}, 20, 50))
	require.True(t, admit(ContentBatch, DeepIdle, SystemLoad{CPUPercent: 5, DiskBusy: false}, 20, 50))
}

func TestClassifyThresholds(t *testing.T) {
	require.Equal(t, Active, Classify(5, 15, 60))
	require.Equal(t, WarmIdle, Classify(30, 15, 60))
	require.Equal(t, DeepIdle, Classify(90, 15, 60))
}
