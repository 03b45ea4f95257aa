package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/storage"
)

const jobsPrefix = "jobs"

// implObjectRepository keeps one JSON record per job in the object store
type implObjectRepository struct {
	store storage.Store
}

// NewObject creates a Repository backed by the object store
func NewObject(store storage.Store) Repository {
	return &implObjectRepository{store: store}
}

func jobKey(id string) string {
	return fmt.Sprintf("%s/%s.json", jobsPrefix, id)
}

func resultKey(id string) string {
	return fmt.Sprintf("%s/%s_result.json", jobsPrefix, id)
}

func (r *implObjectRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.save(ctx, job)
}

func (r *implObjectRepository) Update(ctx context.Context, job *domain.Job) error {
	// Terminal states are sticky: refuse to overwrite a record that
	// reached one since the caller last read it
	current, err := r.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", domain.ErrInvalidState, job.ID, current.Status)
	}
	return r.save(ctx, job)
}

func (r *implObjectRepository) save(ctx context.Context, job *domain.Job) error {
	content, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := r.store.UploadContent(ctx, content, jobKey(job.ID), "application/json"); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *implObjectRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.load(ctx, jobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *implObjectRepository) SaveResult(ctx context.Context, result *domain.JobResult) error {
	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", result.JobID, err)
	}
	if err := r.store.UploadContent(ctx, content, resultKey(result.JobID), "application/json"); err != nil {
		return fmt.Errorf("save result %s: %w", result.JobID, err)
	}
	return nil
}

func (r *implObjectRepository) GetResult(ctx context.Context, id string) (*domain.JobResult, error) {
	var result domain.JobResult
	if err := r.load(ctx, resultKey(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *implObjectRepository) load(ctx context.Context, key string, v interface{}) error {
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if !ok {
		return domain.ErrJobNotFound
	}

	path, err := r.store.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
