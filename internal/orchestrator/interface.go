package orchestrator

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Orchestrator drives jobs through the processing pipeline and owns
// every write to the job repository
type Orchestrator interface {
	// Submit persists a PENDING job and returns its id without running it
	Submit(ctx context.Context, mediaKey, deckKey string, options map[string]string) (string, error)

	// Run executes the pipeline stages for a PENDING job. Calling it on a
	// job in any other status is a no-op.
	Run(ctx context.Context, jobID string) error

	// Cancel moves a PENDING or PROCESSING job to CANCELLED. Returns false
	// when the job is missing or already terminal.
	Cancel(ctx context.Context, jobID string) (bool, error)

	// GetStatus returns the current job snapshot
	GetStatus(ctx context.Context, jobID string) (*domain.Job, error)

	// GetResults returns the artifact map of a COMPLETED job
	GetResults(ctx context.Context, jobID string) (*domain.JobResult, error)
}
