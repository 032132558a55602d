package extract

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

// plaintextExts is the set of extensions the fast path claims, matching
// the "plain-text fast path" named first in spec §4.5's typical order.
var plaintextExts = map[string]bool{
	".txt": true, ".md": true, ".log": true, ".csv": true, ".json": true,
	".ini": true, ".cfg": true, ".yaml": true, ".yml": true, ".xml": true,
}

// PlaintextExtractor reads UTF-8/ASCII text files directly, enforcing
// MaxBytesPerFile and MaxChars without ever holding the full file in
// memory past the char limit.
type PlaintextExtractor struct{}

func (PlaintextExtractor) Name() string { return "plaintext" }

func (PlaintextExtractor) Supports(ctx context.Context, req Request) bool {
	return plaintextExts[strings.ToLower(req.Ext)]
}

func (PlaintextExtractor) Extract(ctx context.Context, req Request, limits Limits) (Result, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return Result{}, errs.Wrap(errs.ExtractorCorrupt, req.Path, err)
	}
	defer f.Close()

	limitedReader := io.LimitReader(f, limits.MaxBytesPerFile+1)
	reader := bufio.NewReaderSize(limitedReader, 64*1024)

	var sb strings.Builder
	var bytesRead int64
	truncated := false
	runeCount := 0

	for {
		select {
		case <-ctx.Done():
			return Result{}, errs.Wrap(errs.ExtractorTimeout, req.Path, ctx.Err())
		default:
		}

		r, size, err := reader.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, errs.Wrap(errs.ExtractorCorrupt, req.Path, err)
		}

		if bytesRead+int64(size) > limits.MaxBytesPerFile {
			truncated = true
			break
		}
		if runeCount >= limits.MaxChars {
			truncated = true
			break
		}

		bytesRead += int64(size)
		sb.WriteRune(r)
		runeCount++
	}

	return Result{
		Text:           sb.String(),
		Truncated:      truncated,
		BytesProcessed: bytesRead,
	}, nil
}
