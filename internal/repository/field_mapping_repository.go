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

// fieldMappingRepository implements FieldMappingRepository interface
type fieldMappingRepository struct {
	pool *pgxpool.Pool
}

// NewFieldMappingRepository creates a new field mapping repository
func NewFieldMappingRepository(pool *pgxpool.Pool) FieldMappingRepository {
	return &fieldMappingRepository{pool: pool}
}

const fieldMappingColumns = `id, source_id, source_field_name, catalog_field_id,
	transformation_rule, confidence, is_manual, created_at, updated_at`

// Upsert inserts or replaces the mapping for (source_id, source_field_name)
func (r *fieldMappingRepository) Upsert(ctx context.Context, mapping domain.FieldMapping) (domain.FieldMapping, error) {
	rule, err := mapping.GetRuleAsJSONB()
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("marshal transformation rule: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO field_mappings (id, source_id, source_field_name, catalog_field_id,
			transformation_rule, confidence, is_manual, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_id, source_field_name) DO UPDATE
		SET catalog_field_id = EXCLUDED.catalog_field_id,
			transformation_rule = EXCLUDED.transformation_rule,
			confidence = EXCLUDED.confidence,
			is_manual = EXCLUDED.is_manual,
			updated_at = now()
		RETURNING `+fieldMappingColumns,
		mapping.ID, mapping.SourceID, mapping.SourceFieldName, mapping.CatalogFieldID,
		rule, mapping.Confidence, mapping.IsManual, mapping.CreatedAt, mapping.UpdatedAt,
	)
	out, err := scanFieldMapping(row)
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("failed to upsert field mapping: %w", err)
	}
	return out, nil
}

// GetByID retrieves a field mapping by ID
func (r *fieldMappingRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.FieldMapping, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fieldMappingColumns+` FROM field_mappings WHERE id = $1`, id)
	out, err := scanFieldMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FieldMapping{}, ErrNotFound
	}
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("failed to get field mapping: %w", err)
	}
	return out, nil
}

// ListBySource retrieves all mappings scoped to one data source
func (r *fieldMappingRepository) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.FieldMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fieldMappingColumns+`
		FROM field_mappings
		WHERE source_id = $1
		ORDER BY source_field_name`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list field mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.FieldMapping
	for rows.Next() {
		mapping, err := scanFieldMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

// CountByCatalogField counts mappings targeting a catalog field
func (r *fieldMappingRepository) CountByCatalogField(ctx context.Context, catalogFieldID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM field_mappings WHERE catalog_field_id = $1`, catalogFieldID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count field mappings: %w", err)
	}
	return count, nil
}

// Update updates a field mapping
func (r *fieldMappingRepository) Update(ctx context.Context, mapping domain.FieldMapping) (domain.FieldMapping, error) {
	rule, err := mapping.GetRuleAsJSONB()
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("marshal transformation rule: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE field_mappings
		SET catalog_field_id = $2, transformation_rule = $3, confidence = $4,
			is_manual = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+fieldMappingColumns,
		mapping.ID, mapping.CatalogFieldID, rule, mapping.Confidence, mapping.IsManual,
	)
	out, err := scanFieldMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FieldMapping{}, ErrNotFound
	}
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("failed to update field mapping: %w", err)
	}
	return out, nil
}

// Delete deletes a field mapping
func (r *fieldMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM field_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete field mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFieldMapping(row pgx.Row) (domain.FieldMapping, error) {
	var (
		mapping domain.FieldMapping
		rule    json.RawMessage
	)
	err := row.Scan(
		&mapping.ID, &mapping.SourceID, &mapping.SourceFieldName, &mapping.CatalogFieldID,
		&rule, &mapping.Confidence, &mapping.IsManual, &mapping.CreatedAt, &mapping.UpdatedAt,
	)
	if err != nil {
		return domain.FieldMapping{}, err
	}
	mapping.TransformationRule, err = domain.RuleFromJSONB(rule)
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("unmarshal transformation rule: %w", err)
	}
	return mapping, nil
}
