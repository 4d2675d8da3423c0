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

// catalogFieldRepository implements CatalogFieldRepository interface
type catalogFieldRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogFieldRepository creates a new catalog field repository
func NewCatalogFieldRepository(pool *pgxpool.Pool) CatalogFieldRepository {
	return &catalogFieldRepository{pool: pool}
}

const catalogFieldColumns = `id, name, display_name, data_type, description, category,
	is_required, is_standard, validation_rules, tags, related_field_ids, created_at, updated_at`

// Create inserts a new catalog field
func (r *catalogFieldRepository) Create(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	rules, err := field.GetRulesAsJSONB()
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("marshal validation rules: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_fields (id, name, display_name, data_type, description, category,
			is_required, is_standard, validation_rules, tags, related_field_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+catalogFieldColumns,
		field.ID, field.Name, field.DisplayName, string(field.DataType), field.Description,
		field.Category, field.IsRequired, field.IsStandard, rules, field.Tags,
		field.RelatedFieldIDs, field.CreatedAt, field.UpdatedAt,
	)
	out, err := scanCatalogField(row)
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("failed to create catalog field: %w", err)
	}
	return out, nil
}

// GetByID retrieves a catalog field by ID
func (r *catalogFieldRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.CatalogField, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+catalogFieldColumns+` FROM catalog_fields WHERE id = $1`, id)
	out, err := scanCatalogField(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CatalogField{}, ErrNotFound
	}
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("failed to get catalog field: %w", err)
	}
	return out, nil
}

// GetByName retrieves a catalog field by its normalized name
func (r *catalogFieldRepository) GetByName(ctx context.Context, name string) (domain.CatalogField, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+catalogFieldColumns+` FROM catalog_fields WHERE name = $1`, name)
	out, err := scanCatalogField(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CatalogField{}, ErrNotFound
	}
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("failed to get catalog field by name: %w", err)
	}
	return out, nil
}

// List retrieves all catalog fields in declaration order
func (r *catalogFieldRepository) List(ctx context.Context) ([]domain.CatalogField, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+catalogFieldColumns+` FROM catalog_fields ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog fields: %w", err)
	}
	defer rows.Close()

	var fields []domain.CatalogField
	for rows.Next() {
		field, err := scanCatalogField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog field: %w", err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

// Update updates a catalog field
func (r *catalogFieldRepository) Update(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	rules, err := field.GetRulesAsJSONB()
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("marshal validation rules: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE catalog_fields
		SET display_name = $2, data_type = $3, description = $4, category = $5,
			is_required = $6, validation_rules = $7, tags = $8, related_field_ids = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING `+catalogFieldColumns,
		field.ID, field.DisplayName, string(field.DataType), field.Description, field.Category,
		field.IsRequired, rules, field.Tags, field.RelatedFieldIDs,
	)
	out, err := scanCatalogField(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CatalogField{}, ErrNotFound
	}
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("failed to update catalog field: %w", err)
	}
	return out, nil
}

// Delete deletes a catalog field
func (r *catalogFieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM catalog_fields WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCatalogField(row pgx.Row) (domain.CatalogField, error) {
	var (
		field    domain.CatalogField
		dataType string
		rules    json.RawMessage
	)
	err := row.Scan(
		&field.ID, &field.Name, &field.DisplayName, &dataType, &field.Description,
		&field.Category, &field.IsRequired, &field.IsStandard, &rules,
		&field.Tags, &field.RelatedFieldIDs, &field.CreatedAt, &field.UpdatedAt,
	)
	if err != nil {
		return domain.CatalogField{}, err
	}
	field.DataType = domain.CatalogDataType(dataType)
	field.ValidationRules, err = domain.RulesFromJSONB(rules)
	if err != nil {
		return domain.CatalogField{}, fmt.Errorf("unmarshal validation rules: %w", err)
	}
	return field, nil
}
