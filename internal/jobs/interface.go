package jobs

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Repository persists one durable record per job id. The orchestrator is
// the only writer; status readers get snapshots.
type Repository interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	SaveResult(ctx context.Context, result *domain.JobResult) error
	GetResult(ctx context.Context, id string) (*domain.JobResult, error)
}
