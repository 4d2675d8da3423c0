package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/datacatalog/internal/domain"
)

// dataSourceRepository implements DataSourceRepository interface
type dataSourceRepository struct {
	pool *pgxpool.Pool
}

// NewDataSourceRepository creates a new data source repository
func NewDataSourceRepository(pool *pgxpool.Pool) DataSourceRepository {
	return &dataSourceRepository{pool: pool}
}

const dataSourceColumns = `id, name, source_type, configuration, metadata, created_at, updated_at`

// Create inserts a new data source
func (r *dataSourceRepository) Create(ctx context.Context, source domain.DataSource) (domain.DataSource, error) {
	configuration, err := source.GetConfigurationAsJSONB()
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("marshal configuration: %w", err)
	}
	metadata, err := source.MetadataToJSONB()
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO data_sources (id, name, source_type, configuration, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+dataSourceColumns,
		source.ID, source.Name, string(source.Type), configuration, metadata,
		source.CreatedAt, source.UpdatedAt,
	)
	out, err := scanDataSource(row)
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("failed to create data source: %w", err)
	}
	return out, nil
}

// GetByID retrieves a data source by ID
func (r *dataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DataSource, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dataSourceColumns+` FROM data_sources WHERE id = $1`, id)
	out, err := scanDataSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DataSource{}, ErrNotFound
	}
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("failed to get data source: %w", err)
	}
	return out, nil
}

// List retrieves all data sources
func (r *dataSourceRepository) List(ctx context.Context) ([]domain.DataSource, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dataSourceColumns+` FROM data_sources ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.DataSource
	for rows.Next() {
		source, err := scanDataSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// Update updates a data source
func (r *dataSourceRepository) Update(ctx context.Context, source domain.DataSource) (domain.DataSource, error) {
	configuration, err := source.GetConfigurationAsJSONB()
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("marshal configuration: %w", err)
	}
	metadata, err := source.MetadataToJSONB()
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE data_sources
		SET name = $2, source_type = $3, configuration = $4, metadata = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+dataSourceColumns,
		source.ID, source.Name, string(source.Type), configuration, metadata,
	)
	out, err := scanDataSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DataSource{}, ErrNotFound
	}
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("failed to update data source: %w", err)
	}
	return out, nil
}

// Delete deletes a data source
func (r *dataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDataSource(row pgx.Row) (domain.DataSource, error) {
	var (
		source        domain.DataSource
		sourceType    string
		configuration json.RawMessage
		metadata      json.RawMessage
	)
	err := row.Scan(
		&source.ID, &source.Name, &sourceType, &configuration, &metadata,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return domain.DataSource{}, err
	}
	source.Type = domain.SourceType(sourceType)
	source.Configuration, err = domain.ConfigurationFromJSONB(configuration)
	if err != nil {
		return domain.DataSource{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &source.Metadata); err != nil {
			return domain.DataSource{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return source, nil
}
