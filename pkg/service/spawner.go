package service

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ultrasearch/ultrasearch/pkg/log"
)

// ProcessSpawner launches the ultrasearch-worker binary as a short-lived
// child process and waits for it to exit (spec §4.6/§5: "the scheduler
// spawns a worker process per batch and blocks until it exits"). None of
// the example repos exec a sibling binary this way — Warren's worker runs
// inside a containerd-managed container instead — so this is grounded on
// plain os/exec rather than any pack precedent; see DESIGN.md.
type ProcessSpawner struct {
	workerPath string
}

// NewProcessSpawner builds a ProcessSpawner that execs workerPath for each
// batch.
func NewProcessSpawner(workerPath string) *ProcessSpawner {
	return &ProcessSpawner{workerPath: workerPath}
}

// Spawn implements scheduler.WorkerSpawner. The worker's own convention is
// to derive its result path by swapping the .job extension for .result
// (spec §6), so the spawner only needs to wait for it to exit cleanly.
func (p *ProcessSpawner) Spawn(ctx context.Context, jobPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.workerPath, "--job", jobPath)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	logger := log.WithComponent("spawner")
	logger.Debug().Str("job_path", jobPath).Msg("spawning worker")

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("worker process failed: %w: %s", err, stderr.String())
	}

	return resultPathFor(jobPath), nil
}

// resultPathFor derives a batch's result descriptor path from its job
// descriptor path by swapping the .job extension for .result (spec §6).
func resultPathFor(jobPath string) string {
	return strings.TrimSuffix(jobPath, filepath.Ext(jobPath)) + ".result"
}
