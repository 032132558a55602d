package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGateRequiresHysteresisBeforeAdmitting(t *testing.T) {
	g := NewGate(20, 50)
	load := SystemLoad{CPUPercent: 5}

	// First two ticks of otherwise-admissible DeepIdle/low-CPU state
	// must not flip ContentBatch on yet.
	res := g.Tick(DeepIdle, load)
	require.False(t, res[ContentBatch])
	res = g.Tick(DeepIdle, load)
	require.False(t, res[ContentBatch])

	// Third consecutive tick crosses hysteresisTicks.
	res = g.Tick(DeepIdle, load)
	require.True(t, res[ContentBatch])
}

func TestGateBlocksImmediatelyOnSingleBadTick(t *testing.T) {
	g := NewGate(20, 50)
	load := SystemLoad{CPUPercent: 5}

	for i := 0; i < hysteresisTicks; i++ {
		g.Tick(DeepIdle, load)
	}
	require.True(t, g.Tick(DeepIdle, load)[ContentBatch])

	// A single tick of Active must gate ContentBatch off immediately;
	// hysteresis only delays re-admission, never gating-off.
	res := g.Tick(Active, load)
	require.False(t, res[ContentBatch], "gating off must not wait out the hysteresis window")
}

func TestGateReadmitsAfterHysteresisFollowingImmediateBlock(t *testing.T) {
	g := NewGate(20, 50)
	load := SystemLoad{CPUPercent: 5}

	for i := 0; i < hysteresisTicks; i++ {
		g.Tick(DeepIdle, load)
	}
	require.True(t, g.Tick(DeepIdle, load)[ContentBatch])

	require.False(t, g.Tick(Active, load)[ContentBatch])

	for i := 0; i < hysteresisTicks-1; i++ {
		require.False(t, g.Tick(DeepIdle, load)[ContentBatch])
	}
	require.True(t, g.Tick(DeepIdle, load)[ContentBatch])
}

func TestGateCriticalUpdateNeverBlockedUnderHardGateAlone(t *testing.T) {
	g := NewGate(20, 50)
	res := g.Tick(Active, SystemLoad{CPUPercent: 45})
	require.True(t, res[CriticalUpdate])
}
