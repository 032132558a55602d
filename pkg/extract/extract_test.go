package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestPlaintextExtractorReadsWholeFile(t *testing.T) {
	path := writeTempFile(t, "hello world")
	ex := PlaintextExtractor{}
	req := Request{Path: path, Ext: ".txt"}

	res, err := ex.Extract(context.Background(), req, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Text)
	require.False(t, res.Truncated)
}

func TestPlaintextExtractorTruncatesAtMaxChars(t *testing.T) {
	path := writeTempFile(t, strings.Repeat("a", 1000))
	ex := PlaintextExtractor{}
	limits := DefaultLimits()
	limits.MaxChars = 10

	res, err := ex.Extract(context.Background(), Request{Path: path, Ext: ".txt"}, limits)
	require.NoError(t, err)
	require.True(t, res.Truncated)
	require.Len(t, []rune(res.Text), 10)
}

func TestPlaintextExtractorEnforcesMaxBytes(t *testing.T) {
	path := writeTempFile(t, strings.Repeat("b", 1000))
	ex := PlaintextExtractor{}
	limits := DefaultLimits()
	limits.MaxBytesPerFile = 10

	res, err := ex.Extract(context.Background(), Request{Path: path, Ext: ".txt"}, limits)
	require.NoError(t, err)
	require.True(t, res.Truncated)
	require.LessOrEqual(t, res.BytesProcessed, limits.MaxBytesPerFile)
}

func TestStackReturnsUnsupportedWhenNoExtractorMatches(t *testing.T) {
	stack := NewStack(DefaultLimits(), PlaintextExtractor{})
	_, err := stack.Extract(context.Background(), Request{Path: "x.bin", Ext: ".bin"})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ExtractorUnsupported))
}

func TestStackDispatchesToFirstSupportingExtractor(t *testing.T) {
	path := writeTempFile(t, "content")
	stack := NewStack(DefaultLimits(), PlaintextExtractor{})

	res, err := stack.Extract(context.Background(), Request{Path: path, Ext: ".txt"})
	require.NoError(t, err)
	require.Equal(t, "content", res.Text)
}

func TestTruncateCodepointsRespectsRuneBoundaries(t *testing.T) {
	s := "héllo wörld"
	truncated, did := TruncateCodepoints(s, 5)
	require.True(t, did)
	require.Equal(t, 5, len([]rune(truncated)))
	require.True(t, ValidateBoundary(s, len(truncated)))
}

func TestTruncateCodepointsNoopWhenUnderLimit(t *testing.T) {
	s, did := TruncateCodepoints("short", 100)
	require.False(t, did)
	require.Equal(t, "short", s)
}
