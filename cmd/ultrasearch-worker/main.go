// Command ultrasearch-worker is the short-lived content-indexing worker
// spawned once per batch (spec §4.4/§4.6): it reads a job descriptor,
// runs the extractor stack against every file in the batch, commits the
// extracted text to the content index, writes a result descriptor, and
// exits. The service communicates with it only through the job/result
// descriptor files handed in at spawn; no shared memory (spec §5).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ultrasearch/ultrasearch/pkg/contentindex"
	"github.com/ultrasearch/ultrasearch/pkg/extract"
	"github.com/ultrasearch/ultrasearch/pkg/ids"
	"github.com/ultrasearch/ultrasearch/pkg/jobstore"
	"github.com/ultrasearch/ultrasearch/pkg/log"
)

// Exit codes named in spec §6: 0 success (result written), 1 batch
// partially failed but committed, 2 init failure, 3 crash after partial
// work.
const (
	exitSuccess        = 0
	exitPartialFailure = 1
	exitInitFailure    = 2
	exitCrashPartial   = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ultrasearch-worker: %v\n", err)
		if coded, ok := err.(*exitCodeErr); ok {
			return coded.code
		}
		return exitInitFailure
	}
	return exitCode
}

// exitCode records the batch's actual outcome for run to return; cobra's
// RunE contract reports hard errors only, so a batch that finished but
// left some files failed still needs exitPartialFailure reported here.
var exitCode = exitSuccess

type exitCodeErr struct {
	code int
	err  error
}

func (e *exitCodeErr) Error() string { return e.err.Error() }
func (e *exitCodeErr) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "ultrasearch-worker",
	Short: "UltraSearch content-extraction worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobPath, _ := cmd.Flags().GetString("job")
		if jobPath == "" {
			return &exitCodeErr{code: exitInitFailure, err: fmt.Errorf("--job is required")}
		}

		logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
		logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

		job, err := jobstore.ReadJobDescriptor(jobPath)
		if err != nil {
			return &exitCodeErr{code: exitInitFailure, err: fmt.Errorf("read job descriptor: %w", err)}
		}

		logger := log.WithBatch(job.BatchID)
		logger.Info().Int("files", len(job.Files)).Msg("worker starting batch")

		result, runErr := runBatch(cmd.Context(), job, logger)
		if result == nil {
			result = &jobstore.ResultDescriptor{BatchID: job.BatchID}
		}

		if _, werr := jobstore.WriteResultDescriptor(filepath.Dir(jobPath), result); werr != nil {
			return &exitCodeErr{code: exitCrashPartial, err: fmt.Errorf("write result descriptor: %w", werr)}
		}

		if runErr != nil {
			return &exitCodeErr{code: exitCrashPartial, err: runErr}
		}
		if len(result.Failed) > 0 {
			exitCode = exitPartialFailure
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("job", "", "Path to the .job descriptor file (required)")
	rootCmd.MarkFlagRequired("job")
}

// buildStack assembles the extractor stack in the order spec §4.5 names:
// the plain-text fast path first. The repo's other extractors (office,
// PDF, OCR) are out of scope for this pass; see DESIGN.md.
func buildStack(limits extract.Limits) *extract.Stack {
	return extract.NewStack(limits, extract.PlaintextExtractor{})
}

// runBatch extracts every file in the job and commits the whole batch to
// the content index in a single writer session (spec §4.4: "A worker
// opens the index exclusively, indexes its job batch, commits once, then
// closes and exits"). It always returns a non-nil result so a failure
// partway through is still reported for the caller to commit what
// succeeded.
func runBatch(ctx context.Context, job *jobstore.JobDescriptor, logger zerolog.Logger) (*jobstore.ResultDescriptor, error) {
	limits := extract.Limits{
		MaxBytesPerFile: job.ExtractorConfig.MaxBytesPerFile,
		MaxChars:        job.ExtractorConfig.MaxChars,
		ArchiveDepth:    extract.DefaultLimits().ArchiveDepth,
		OCRMaxPages:     job.ExtractorConfig.OCRMaxPages,
		Timeout:         extract.DefaultLimits().Timeout,
	}
	stack := buildStack(limits)

	result := &jobstore.ResultDescriptor{BatchID: job.BatchID}
	docs := make([]contentindex.ContentDoc, 0, len(job.Files))

	for _, f := range job.Files {
		req := extract.Request{DocKey: f.DocKey, Path: f.Path, Ext: f.Ext, Size: f.Size, Mime: f.Mime}

		res, err := stack.Extract(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Str("path", f.Path).Msg("extraction failed")
			result.Failed = append(result.Failed, jobstore.FailedFile{DocKey: f.DocKey, Cause: err.Error()})
			continue
		}

		result.Processed = append(result.Processed, jobstore.ProcessedFile{
			DocKey:    f.DocKey,
			Bytes:     res.BytesProcessed,
			Chars:     len([]rune(res.Text)),
			Truncated: res.Truncated,
			Lang:      res.ContentLang,
		})
		docs = append(docs, contentindex.ContentDoc{
			DocKey:  f.DocKey.String(),
			Volume:  uint16(volumeOf(f.DocKey)),
			Content: res.Text,
			Lang:    res.ContentLang,
		})
	}

	writer, err := contentindex.OpenWriter(job.ContentIndexPath)
	if err != nil {
		return result, fmt.Errorf("open content index: %w", err)
	}
	defer writer.Close()

	if len(docs) > 0 {
		if err := writer.IndexBatch(docs); err != nil {
			return result, fmt.Errorf("commit content batch: %w", err)
		}
	}

	for _, key := range job.Deletes {
		if err := writer.DeleteByDocKey(key); err != nil {
			logger.Warn().Err(err).Str("doc_key", key.String()).Msg("content delete failed")
			result.Failed = append(result.Failed, jobstore.FailedFile{DocKey: key, Cause: err.Error()})
		}
	}

	result.Committed = true
	return result, nil
}

func volumeOf(key ids.DocKey) ids.VolumeId {
	return key.Volume()
}
