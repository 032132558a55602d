package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IoFatal, "flush segment", cause)
	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, IoFatal))
	require.False(t, Is(err, IoTransient))
}

func TestIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("batch commit failed: %w", New(IndexBusy, "writer lease held"))
	require.True(t, Is(err, IndexBusy))
}
