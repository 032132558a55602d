package jobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// ExtractorConfig mirrors the recognized indexing configuration keys
// handed to a worker (spec §6).
type ExtractorConfig struct {
	MaxBytesPerFile int64    `json:"max_bytes_per_file"`
	MaxChars        int      `json:"max_chars"`
	OCREnabled      bool     `json:"ocr_enabled"`
	OCRMaxPages     int      `json:"ocr_max_pages"`
	EnabledFormats  []string `json:"enabled_formats"`
}

// JobFile describes one file a worker must extract.
type JobFile struct {
	DocKey ids.DocKey `json:"doc_key"`
	Path   string     `json:"path"`
	Ext    string     `json:"ext"`
	Size   int64      `json:"size"`
	Mime   string     `json:"mime,omitempty"`
}

// JobDescriptor is the worker input file written by the scheduler before
// spawning a worker process (spec §6: `/jobs/{ulid}.job`).
type JobDescriptor struct {
	BatchID          string          `json:"batch_id"`
	ContentIndexPath string          `json:"content_index_path"`
	ExtractorConfig  ExtractorConfig `json:"extractor_config"`
	Files            []JobFile       `json:"files"`

	// Deletes carries DocKeys whose metadata doc was deleted since the
	// last batch; the worker removes their content docs in the same
	// writer session instead of extracting them (spec §3).
	Deletes []ids.DocKey `json:"deletes,omitempty"`
}

// ProcessedFile records one successfully extracted file.
type ProcessedFile struct {
	DocKey    ids.DocKey `json:"doc_key"`
	Bytes     int64      `json:"bytes"`
	Chars     int        `json:"chars"`
	Truncated bool       `json:"truncated"`
	Lang      string     `json:"lang,omitempty"`
}

// FailedFile records one file the worker could not extract.
type FailedFile struct {
	DocKey ids.DocKey `json:"doc_key"`
	Cause  string     `json:"cause"`
}

// ResultDescriptor is the worker output file written before exit (spec
// §6: `/jobs/{ulid}.result`).
type ResultDescriptor struct {
	BatchID   string          `json:"batch_id"`
	Processed []ProcessedFile `json:"processed"`
	Failed    []FailedFile    `json:"failed"`
	Committed bool            `json:"committed"`
}

// NewBatchID generates a fresh batch identifier. The source system uses
// ULIDs; no ULID library is present anywhere in the retrieved example
// repos, so google/uuid (already a direct dependency) stands in — see
// DESIGN.md.
func NewBatchID() string {
	return uuid.NewString()
}

// WriteJobDescriptor atomically writes a job descriptor to
// jobsDir/{batch_id}.job.
func WriteJobDescriptor(jobsDir string, job *JobDescriptor) (string, error) {
	path := filepath.Join(jobsDir, job.BatchID+".job")
	return path, writeAtomicJSON(path, job)
}

// ReadJobDescriptor reads a job descriptor from disk.
func ReadJobDescriptor(path string) (*JobDescriptor, error) {
	var job JobDescriptor
	if err := readJSON(path, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WriteResultDescriptor atomically writes a result descriptor to
// jobsDir/{batch_id}.result.
func WriteResultDescriptor(jobsDir string, result *ResultDescriptor) (string, error) {
	path := filepath.Join(jobsDir, result.BatchID+".result")
	return path, writeAtomicJSON(path, result)
}

// ReadResultDescriptor reads a result descriptor from disk.
func ReadResultDescriptor(path string) (*ResultDescriptor, error) {
	var result ResultDescriptor
	if err := readJSON(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func writeAtomicJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
