// Package extract implements the ordered extractor stack described in
// spec §4.5: the first extractor advertising support for a file handles
// it, with no fallback retry on failure.
package extract

import (
	"context"
	"time"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// Request is the input to an extractor (spec §4.5).
type Request struct {
	DocKey ids.DocKey
	Path   string
	Ext    string
	Size   int64
	Mime   string
}

// Limits bounds every extractor uniformly (spec §4.5).
type Limits struct {
	MaxBytesPerFile int64
	MaxChars        int
	ArchiveDepth    int
	OCRMaxPages     int
	Timeout         time.Duration
}

// DefaultLimits matches the defaults named in spec §4.5/§6.
func DefaultLimits() Limits {
	return Limits{
		MaxBytesPerFile: 32 * 1024 * 1024,
		MaxChars:        150_000,
		ArchiveDepth:    2,
		OCRMaxPages:     0,
		Timeout:         30 * time.Second,
	}
}

// Result is the successful extraction output (spec §4.5
// ExtractedContent).
type Result struct {
	Text           string
	ContentLang    string
	Metadata       map[string]string
	Truncated      bool
	BytesProcessed int64
}

// Extractor advertises support for a request and extracts its content.
// Implementations must stop early once Limits.MaxChars is reached rather
// than accumulating full text and truncating at the end (spec §4.5).
type Extractor interface {
	Name() string
	Supports(ctx context.Context, req Request) bool
	Extract(ctx context.Context, req Request, limits Limits) (Result, error)
}

// Stack is an ordered list of extractors. The first one whose Supports
// returns true handles the file; its failure is not retried against
// later extractors (spec §4.5: "prevents duplicate cost and ambiguous
// semantics").
type Stack struct {
	extractors []Extractor
	limits     Limits
}

// NewStack builds a Stack with the given ordered extractors and limits.
func NewStack(limits Limits, extractors ...Extractor) *Stack {
	return &Stack{extractors: extractors, limits: limits}
}

// Extract runs the request through the stack, returning an
// *errs.Error with Kind ExtractorUnsupported if nothing in the stack
// claims support.
func (s *Stack) Extract(ctx context.Context, req Request) (Result, error) {
	for _, ex := range s.extractors {
		if !ex.Supports(ctx, req) {
			continue
		}

		ctx, cancel := context.WithTimeout(ctx, s.limits.Timeout)
		defer cancel()

		res, err := ex.Extract(ctx, req, s.limits)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, errs.Wrap(errs.ExtractorTimeout, ex.Name()+": "+req.Path, ctx.Err())
			}
			return Result{}, err
		}
		return res, nil
	}
	return Result{}, errs.New(errs.ExtractorUnsupported, "no extractor supports "+req.Ext)
}
