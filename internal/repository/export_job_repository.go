package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/datacatalog/internal/domain"
)

// ErrExportJobStatusConflict indicates that a job cannot transition to the requested state.
var ErrExportJobStatusConflict = errors.New("export job status conflict")

type exportJobRepository struct {
	pool *pgxpool.Pool
}

// NewExportJobRepository wires a repository for managing catalog export jobs.
func NewExportJobRepository(pool *pgxpool.Pool) ExportJobRepository {
	return &exportJobRepository{pool: pool}
}

const exportJobColumns = `id, source_id, source_name, max_records, rows_requested, rows_exported,
	bytes_written, file_path, file_mime_type, file_byte_size, status, error_message,
	enqueued_at, started_at, completed_at, updated_at`

func (r *exportJobRepository) Create(ctx context.Context, job domain.ExportJob) (domain.ExportJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO export_jobs (id, source_id, source_name, max_records, rows_requested, status, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+exportJobColumns,
		job.ID, job.SourceID, job.SourceName, job.MaxRecords, job.RowsRequested,
		string(domain.ExportJobStatusPending),
	)
	out, err := scanExportJob(row)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("insert export job: %w", err)
	}
	return out, nil
}

func (r *exportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+exportJobColumns+` FROM export_jobs WHERE id = $1`, id)
	out, err := scanExportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExportJob{}, ErrNotFound
	}
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("get export job: %w", err)
	}
	return out, nil
}

func (r *exportJobRepository) List(ctx context.Context, limit int) ([]domain.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+exportJobColumns+` FROM export_jobs ORDER BY enqueued_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkRunning transitions PENDING -> RUNNING. A job in any other state
// reports a status conflict so a cancelled job never starts.
func (r *exportJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE export_jobs
		SET status = $2, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, string(domain.ExportJobStatusRunning), string(domain.ExportJobStatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportJobStatusConflict
	}
	return nil
}

func (r *exportJobRepository) MarkCompleted(ctx context.Context, job domain.ExportJob) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE export_jobs
		SET status = $2, rows_exported = $3, bytes_written = $4, file_path = $5,
			file_mime_type = $6, file_byte_size = $7, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $8`,
		job.ID, string(domain.ExportJobStatusCompleted), job.RowsExported, job.BytesWritten,
		job.FilePath, job.FileMimeType, job.FileByteSize, string(domain.ExportJobStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("mark export job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportJobStatusConflict
	}
	return nil
}

func (r *exportJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE export_jobs
		SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		WHERE id = $1`,
		id, string(domain.ExportJobStatusFailed), message,
	)
	if err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return nil
}

// MarkCancelled transitions PENDING or RUNNING -> CANCELLED. Finished jobs
// report a status conflict so a completed export is never un-done.
func (r *exportJobRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE export_jobs
		SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)`,
		id, string(domain.ExportJobStatusCancelled),
		string(domain.ExportJobStatusPending), string(domain.ExportJobStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("mark export job cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportJobStatusConflict
	}
	return nil
}

func scanExportJob(row pgx.Row) (domain.ExportJob, error) {
	var (
		job    domain.ExportJob
		status string
	)
	err := row.Scan(
		&job.ID, &job.SourceID, &job.SourceName, &job.MaxRecords, &job.RowsRequested,
		&job.RowsExported, &job.BytesWritten, &job.FilePath, &job.FileMimeType,
		&job.FileByteSize, &status, &job.ErrorMessage,
		&job.EnqueuedAt, &job.StartedAt, &job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		return domain.ExportJob{}, err
	}
	job.Status = domain.ExportJobStatus(status)
	return job, nil
}
