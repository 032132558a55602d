package ntfs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

type fakeSource struct {
	pos     JournalPosition
	chunks  [][]FileEvent
	nextUsn []ids.Usn
	idx     int
	failN   int // fail the first N ReadChunk calls
	calls   int
}

func (f *fakeSource) Position() (JournalPosition, error) { return f.pos, nil }

func (f *fakeSource) ReadChunk(ctx context.Context, startUsn ids.Usn, maxBytes int) ([]FileEvent, ids.Usn, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, 0, errors.New("simulated transient failure")
	}
	if f.idx >= len(f.chunks) {
		return nil, startUsn, nil
	}
	events := f.chunks[f.idx]
	next := f.nextUsn[f.idx]
	f.idx++
	return events, next, nil
}

func TestTailerDeliversChunksInOrder(t *testing.T) {
	src := &fakeSource{
		pos:     JournalPosition{JournalID: 1, FirstUsn: 0, NextUsn: 300},
		chunks:  [][]FileEvent{{{Kind: Created, Name: "a.txt"}}, {{Kind: Deleted}}},
		nextUsn: []ids.Usn{100, 200},
	}
	tailer := NewTailer(1, src, 0)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Chunk, 4)

	done := make(chan error, 1)
	go func() { done <- tailer.Tail(ctx, 0, out) }()

	first := <-out
	require.Equal(t, ids.Usn(100), first.NextUsn)
	second := <-out
	require.Equal(t, ids.Usn(200), second.NextUsn)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, Healthy, tailer.Health())
}

func TestTailerRetriesTransientErrorsWithoutAdvancing(t *testing.T) {
	src := &fakeSource{
		pos:     JournalPosition{JournalID: 1, NextUsn: 100},
		chunks:  [][]FileEvent{{{Kind: Modified}}},
		nextUsn: []ids.Usn{100},
		failN:   2,
	}
	tailer := NewTailer(1, src, 0)
	tailer.initialBackoff = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := make(chan Chunk, 1)

	go tailer.Tail(ctx, 0, out)

	select {
	case c := <-out:
		require.Equal(t, ids.Usn(100), c.NextUsn)
	case <-time.After(time.Second):
		t.Fatal("tailer did not recover from transient errors in time")
	}
	require.Equal(t, Healthy, tailer.Health())
}

func TestTailerMarksUnhealthyAfterPersistentFailure(t *testing.T) {
	src := &fakeSource{
		pos:   JournalPosition{JournalID: 1, NextUsn: 100},
		failN: 1000,
	}
	tailer := NewTailer(1, src, 0)
	tailer.initialBackoff = time.Millisecond
	tailer.failThreshold = 3

	ctx := context.Background()
	out := make(chan Chunk)

	err := tailer.Tail(ctx, 0, out)
	require.Error(t, err)
	require.Equal(t, Unhealthy, tailer.Health())
}
