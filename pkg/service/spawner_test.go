package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultPathForSwapsExtension(t *testing.T) {
	require.Equal(t, `C:\jobs\batch-1.result`, resultPathFor(`C:\jobs\batch-1.job`))
}

func TestResultPathForNoExtension(t *testing.T) {
	require.Equal(t, "batch-1.result", resultPathFor("batch-1"))
}
