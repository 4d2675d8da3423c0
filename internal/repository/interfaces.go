package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// CatalogFieldRepository defines the interface for catalog field operations
type CatalogFieldRepository interface {
	Create(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.CatalogField, error)
	GetByName(ctx context.Context, name string) (domain.CatalogField, error)
	List(ctx context.Context) ([]domain.CatalogField, error)
	Update(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DataSourceRepository defines the interface for data source operations
type DataSourceRepository interface {
	Create(ctx context.Context, source domain.DataSource) (domain.DataSource, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DataSource, error)
	List(ctx context.Context) ([]domain.DataSource, error)
	Update(ctx context.Context, source domain.DataSource) (domain.DataSource, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FieldMappingRepository defines the interface for field mapping operations.
// Upsert keys on (source_id, source_field_name): one source field maps to at
// most one catalog field.
type FieldMappingRepository interface {
	Upsert(ctx context.Context, mapping domain.FieldMapping) (domain.FieldMapping, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.FieldMapping, error)
	ListBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.FieldMapping, error)
	CountByCatalogField(ctx context.Context, catalogFieldID uuid.UUID) (int64, error)
	Update(ctx context.Context, mapping domain.FieldMapping) (domain.FieldMapping, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransformLogRepository persists file/row level extraction failures.
type TransformLogRepository interface {
	Insert(ctx context.Context, entry domain.TransformLogEntry) error
	ListBySource(ctx context.Context, sourceID uuid.UUID, limit int) ([]domain.TransformLogEntry, error)
	DeleteBySource(ctx context.Context, sourceID uuid.UUID) error
}

// ExportJobRepository manages persisted catalog export jobs.
type ExportJobRepository interface {
	Create(ctx context.Context, job domain.ExportJob) (domain.ExportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ExportJob, error)
	List(ctx context.Context, limit int) ([]domain.ExportJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, job domain.ExportJob) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
}
