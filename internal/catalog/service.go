package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/repository"
)

var (
	// ErrFieldNameTaken indicates the normalized field name is already declared.
	ErrFieldNameTaken = errors.New("catalog field name already exists")
	// ErrRelatedFieldCycle indicates the related-field update would create a cycle.
	ErrRelatedFieldCycle = errors.New("related field cycle")
	// ErrStandardFieldConfirm indicates a standard field delete was not confirmed.
	ErrStandardFieldConfirm = errors.New("deleting a standard field requires confirmation")
	// ErrUnknownDataType indicates the declared data type is outside the type set.
	ErrUnknownDataType = errors.New("unknown catalog data type")
	// ErrFieldInUse indicates the field is still referenced by field mappings.
	ErrFieldInUse = errors.New("catalog field is referenced by mappings")
)

// Service owns the catalog field registry and the source transformation flow.
type Service struct {
	fields     repository.CatalogFieldRepository
	mappings   repository.FieldMappingRepository
	extractor  *extraction.Service
	transforms *mapping.Service
	assembler  *Assembler
}

func NewService(
	fields repository.CatalogFieldRepository,
	mappings repository.FieldMappingRepository,
	extractor *extraction.Service,
	transforms *mapping.Service,
) *Service {
	return &Service{
		fields:     fields,
		mappings:   mappings,
		extractor:  extractor,
		transforms: transforms,
		assembler:  NewAssembler(),
	}
}

// CreateField registers a new catalog field. Names are normalized before the
// uniqueness check so "Email Address" and "email_address" collide.
func (s *Service) CreateField(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	field.Name = domain.NormalizeFieldName(field.Name)
	if field.Name == "" {
		return domain.CatalogField{}, fmt.Errorf("catalog field name is required")
	}
	if !domain.KnownDataType(field.DataType) {
		return domain.CatalogField{}, fmt.Errorf("%w: %q", ErrUnknownDataType, field.DataType)
	}

	if _, err := s.fields.GetByName(ctx, field.Name); err == nil {
		return domain.CatalogField{}, fmt.Errorf("%w: %s", ErrFieldNameTaken, field.Name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.CatalogField{}, err
	}

	if err := s.checkRelatedFields(ctx, field); err != nil {
		return domain.CatalogField{}, err
	}

	if field.ID == uuid.Nil {
		created := domain.NewCatalogField(field.Name, field.DisplayName, field.DataType)
		created.Description = field.Description
		created.Category = field.Category
		created.IsRequired = field.IsRequired
		created.IsStandard = field.IsStandard
		created = created.WithValidationRules(field.ValidationRules).
			WithTags(field.Tags...).
			WithRelatedFields(field.RelatedFieldIDs...)
		field = created
	}
	return s.fields.Create(ctx, field)
}

// UpdateField applies changes to an existing field. The name and the standard
// flag are immutable; data type changes are allowed and affect only future
// validation.
func (s *Service) UpdateField(ctx context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	current, err := s.fields.GetByID(ctx, field.ID)
	if err != nil {
		return domain.CatalogField{}, err
	}
	if !domain.KnownDataType(field.DataType) {
		return domain.CatalogField{}, fmt.Errorf("%w: %q", ErrUnknownDataType, field.DataType)
	}
	field.Name = current.Name
	field.IsStandard = current.IsStandard

	if err := s.checkRelatedFields(ctx, field); err != nil {
		return domain.CatalogField{}, err
	}
	return s.fields.Update(ctx, field)
}

// DeleteField removes a field. Standard fields need an explicit confirmation
// flag; fields still referenced by mappings are never deleted.
func (s *Service) DeleteField(ctx context.Context, id uuid.UUID, confirmStandard bool) error {
	field, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if field.IsStandard && !confirmStandard {
		return fmt.Errorf("%w: %s", ErrStandardFieldConfirm, field.Name)
	}
	count, err := s.mappings.CountByCatalogField(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s has %d mappings", ErrFieldInUse, field.Name, count)
	}
	return s.fields.Delete(ctx, id)
}

// GetField retrieves one catalog field.
func (s *Service) GetField(ctx context.Context, id uuid.UUID) (domain.CatalogField, error) {
	return s.fields.GetByID(ctx, id)
}

// ListFields returns the catalog in declaration order.
func (s *Service) ListFields(ctx context.Context) ([]domain.CatalogField, error) {
	return s.fields.List(ctx)
}

func (s *Service) checkRelatedFields(ctx context.Context, candidate domain.CatalogField) error {
	if len(candidate.RelatedFieldIDs) == 0 {
		return nil
	}
	existing, err := s.fields.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, f := range existing {
		known[f.ID] = true
	}
	for _, id := range candidate.RelatedFieldIDs {
		if !known[id] && id != candidate.ID {
			return fmt.Errorf("related field %s does not exist", id)
		}
	}
	if err := domain.FindRelatedFieldCycle(existing, candidate); err != nil {
		return fmt.Errorf("%w: %v", ErrRelatedFieldCycle, err)
	}
	return nil
}

// TransformOptions controls one transformation run.
type TransformOptions struct {
	// MaxRecords truncates the returned record list. Zero means unlimited.
	MaxRecords int
}

// TransformResult pairs the assembled catalog with run diagnostics.
type TransformResult struct {
	Catalog     domain.UnifiedDataCatalog `json:"catalog"`
	SkippedRows int                       `json:"skippedRows"`
	Warnings    []string                  `json:"warnings,omitempty"`
	Mapping     *mapping.ApplyResult      `json:"mapping,omitempty"`
}

// TransformDataSource runs the full pipeline for one source: extraction,
// mapping application when the source has stored mappings, schema inference
// and catalog assembly.
func (s *Service) TransformDataSource(ctx context.Context, source domain.DataSource, opts TransformOptions) (TransformResult, error) {
	extracted, err := s.extractor.ExtractSource(ctx, source)
	if err != nil {
		return TransformResult{}, fmt.Errorf("extract source %s: %w", source.Name, err)
	}

	result := TransformResult{
		SkippedRows: extracted.SkippedRows,
		Warnings:    extracted.Warnings,
	}

	records := extracted.Records
	storedMappings, err := s.mappings.ListBySource(ctx, source.ID)
	if err != nil {
		return TransformResult{}, fmt.Errorf("load mappings for %s: %w", source.Name, err)
	}
	if len(storedMappings) > 0 {
		applied, err := s.transforms.ApplyToRecords(ctx, source.ID, records)
		if err != nil {
			return TransformResult{}, fmt.Errorf("apply mappings for %s: %w", source.Name, err)
		}
		records = applied.Records
		result.Mapping = &applied
		result.Warnings = append(result.Warnings, applied.Warnings...)
	}

	result.Catalog = s.assembler.Assemble(source.ID, source.Name, records, opts.MaxRecords)
	log.Printf("[catalog] transformed source %s: %d records, %d skipped, truncated=%v",
		source.Name, result.Catalog.TotalRecords, result.SkippedRows, result.Catalog.Meta.Truncated)
	return result, nil
}
