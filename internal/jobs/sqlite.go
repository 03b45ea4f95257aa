package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	message      TEXT NOT NULL DEFAULT '',
	media_path   TEXT NOT NULL,
	deck_path    TEXT NOT NULL,
	options      TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	completed_at TEXT,
	error        TEXT,
	metadata     TEXT
);
CREATE TABLE IF NOT EXISTS job_results (
	job_id       TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	output_files TEXT NOT NULL,
	statistics   TEXT NOT NULL
);`

// timeLayout keeps timestamps in a fixed, sortable textual format
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type implSQLRepository struct {
	db *sql.DB
}

// OpenSQLite creates a Repository backed by a SQLite database file
func OpenSQLite(path string) (Repository, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &implSQLRepository{db: db}, nil
}

func (r *implSQLRepository) Create(ctx context.Context, job *domain.Job) error {
	options, metadata, err := encodeMaps(job)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, progress, message, media_path, deck_path, options, created_at, updated_at, completed_at, error, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, string(job.Status), job.Progress, job.Message, job.MediaPath, job.DeckPath,
		options, formatTime(job.CreatedAt), formatTime(job.UpdatedAt), formatTimePtr(job.CompletedAt), job.Error, metadata)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *implSQLRepository) Update(ctx context.Context, job *domain.Job) error {
	options, metadata, err := encodeMaps(job)
	if err != nil {
		return err
	}

	// The status guard makes terminal states sticky: a progress write
	// racing a cancellation cannot flip the row back to processing
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, progress = ?, message = ?, options = ?, updated_at = ?, completed_at = ?, error = ?, metadata = ?
		WHERE id = ? AND status NOT IN ('completed', 'failed', 'cancelled')
	`, string(job.Status), job.Progress, job.Message, options,
		formatTime(job.UpdatedAt), formatTimePtr(job.CompletedAt), job.Error, metadata, job.ID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if affected == 0 {
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, job.ID).Scan(&status)
		if err == sql.ErrNoRows {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("update job %s: %w", job.ID, err)
		}
		return fmt.Errorf("%w: job %s is already %s", domain.ErrInvalidState, job.ID, status)
	}
	return nil
}

func (r *implSQLRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, progress, message, media_path, deck_path, options, created_at, updated_at, completed_at, error, metadata
		FROM jobs
		WHERE id = ?
	`, id)

	var job domain.Job
	var status, createdAt, updatedAt string
	var completedAt, errText, options, metadata sql.NullString

	if err := row.Scan(&job.ID, &status, &job.Progress, &job.Message, &job.MediaPath, &job.DeckPath,
		&options, &createdAt, &updatedAt, &completedAt, &errText, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("scan job %s: %w", id, err)
	}

	job.Status = domain.JobStatus(status)
	if errText.Valid {
		job.Error = errText.String
	}

	var err error
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("job %s created_at: %w", id, err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("job %s updated_at: %w", id, err)
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("job %s completed_at: %w", id, err)
		}
		job.CompletedAt = &t
	}

	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &job.Options); err != nil {
			return nil, fmt.Errorf("job %s options: %w", id, err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("job %s metadata: %w", id, err)
		}
	}

	return &job, nil
}

func (r *implSQLRepository) SaveResult(ctx context.Context, result *domain.JobResult) error {
	outputFiles, err := json.Marshal(result.OutputFiles)
	if err != nil {
		return fmt.Errorf("marshal output files: %w", err)
	}
	statistics, err := json.Marshal(result.Statistics)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO job_results (job_id, status, output_files, statistics)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET status = excluded.status, output_files = excluded.output_files, statistics = excluded.statistics
	`, result.JobID, result.Status, string(outputFiles), string(statistics))
	if err != nil {
		return fmt.Errorf("save result %s: %w", result.JobID, err)
	}
	return nil
}

func (r *implSQLRepository) GetResult(ctx context.Context, id string) (*domain.JobResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT job_id, status, output_files, statistics
		FROM job_results
		WHERE job_id = ?
	`, id)

	var result domain.JobResult
	var outputFiles, statistics string
	if err := row.Scan(&result.JobID, &result.Status, &outputFiles, &statistics); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("scan result %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(outputFiles), &result.OutputFiles); err != nil {
		return nil, fmt.Errorf("result %s output files: %w", id, err)
	}
	if err := json.Unmarshal([]byte(statistics), &result.Statistics); err != nil {
		return nil, fmt.Errorf("result %s statistics: %w", id, err)
	}

	return &result, nil
}

// Close releases the underlying database handle
func (r *implSQLRepository) Close() error {
	return r.db.Close()
}

func encodeMaps(job *domain.Job) (string, string, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return "", "", fmt.Errorf("marshal options: %w", err)
	}
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return "", "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(options), string(metadata), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
