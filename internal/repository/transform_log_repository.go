package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/datacatalog/internal/domain"
)

type transformLogRepository struct {
	pool *pgxpool.Pool
}

// NewTransformLogRepository creates a new transform log repository
func NewTransformLogRepository(pool *pgxpool.Pool) TransformLogRepository {
	return &transformLogRepository{pool: pool}
}

func (r *transformLogRepository) Insert(ctx context.Context, entry domain.TransformLogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transform_logs (id, source_id, file_name, record_index, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.SourceID, entry.FileName, entry.RecordIndex, entry.ErrorMessage, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transform log: %w", err)
	}
	return nil
}

func (r *transformLogRepository) ListBySource(ctx context.Context, sourceID uuid.UUID, limit int) ([]domain.TransformLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, source_id, file_name, record_index, error_message, created_at
		FROM transform_logs
		WHERE source_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transform logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.TransformLogEntry
	for rows.Next() {
		var entry domain.TransformLogEntry
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.FileName,
			&entry.RecordIndex, &entry.ErrorMessage, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transform log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *transformLogRepository) DeleteBySource(ctx context.Context, sourceID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM transform_logs WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("failed to delete transform logs: %w", err)
	}
	return nil
}
