package mapping

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/repository"
)

// ErrUnknownCatalogField indicates a mapping references a catalog field that
// does not exist.
var ErrUnknownCatalogField = errors.New("unknown catalog field")

// ErrUnknownRuleType indicates a mapping carries a rule type outside the
// declared variant set.
var ErrUnknownRuleType = errors.New("unknown transformation rule type")

// Service manages field mappings for data sources.
type Service struct {
	mappings  repository.FieldMappingRepository
	fields    repository.CatalogFieldRepository
	suggester *Suggester
}

func NewService(mappings repository.FieldMappingRepository, fields repository.CatalogFieldRepository) *Service {
	return &Service{
		mappings:  mappings,
		fields:    fields,
		suggester: NewSuggester(),
	}
}

// Create stores a manual mapping after checking the catalog field exists and
// the rule type, if any, is declared. Creating a mapping for a source field
// that already has one replaces it.
func (s *Service) Create(ctx context.Context, sourceID uuid.UUID, sourceFieldName string, catalogFieldID uuid.UUID, rule *domain.TransformationRule) (domain.FieldMapping, error) {
	if _, err := s.fields.GetByID(ctx, catalogFieldID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FieldMapping{}, fmt.Errorf("%w: %s", ErrUnknownCatalogField, catalogFieldID)
		}
		return domain.FieldMapping{}, err
	}
	if rule != nil && !domain.KnownRuleType(rule.Type) {
		return domain.FieldMapping{}, fmt.Errorf("%w: %q", ErrUnknownRuleType, rule.Type)
	}

	m := domain.NewFieldMapping(sourceID, sourceFieldName, catalogFieldID).
		WithRule(rule).
		WithConfidence(1.0, true)
	return s.mappings.Upsert(ctx, m)
}

// AcceptSuggestion persists a suggested mapping with its scored confidence.
func (s *Service) AcceptSuggestion(ctx context.Context, sourceID uuid.UUID, sourceFieldName string, suggestion Suggestion) (domain.FieldMapping, error) {
	if _, err := s.fields.GetByID(ctx, suggestion.CatalogFieldID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FieldMapping{}, fmt.Errorf("%w: %s", ErrUnknownCatalogField, suggestion.CatalogFieldID)
		}
		return domain.FieldMapping{}, err
	}

	m := domain.NewFieldMapping(sourceID, sourceFieldName, suggestion.CatalogFieldID).
		WithConfidence(suggestion.Confidence, false)
	log.Printf("[mapping] accepted suggestion %s -> %s (%.2f)", sourceFieldName, suggestion.CatalogFieldName, suggestion.Confidence)
	return s.mappings.Upsert(ctx, m)
}

// UpdateRule replaces the transformation rule on an existing mapping.
func (s *Service) UpdateRule(ctx context.Context, mappingID uuid.UUID, rule *domain.TransformationRule) (domain.FieldMapping, error) {
	if rule != nil && !domain.KnownRuleType(rule.Type) {
		return domain.FieldMapping{}, fmt.Errorf("%w: %q", ErrUnknownRuleType, rule.Type)
	}
	m, err := s.mappings.GetByID(ctx, mappingID)
	if err != nil {
		return domain.FieldMapping{}, err
	}
	return s.mappings.Update(ctx, m.WithRule(rule))
}

// Delete removes a mapping.
func (s *Service) Delete(ctx context.Context, mappingID uuid.UUID) error {
	return s.mappings.Delete(ctx, mappingID)
}

// ListBySource returns all mappings scoped to one data source.
func (s *Service) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]domain.FieldMapping, error) {
	return s.mappings.ListBySource(ctx, sourceID)
}

// Suggest scores the given source fields against the whole catalog.
func (s *Service) Suggest(ctx context.Context, sourceFields []string) (map[string][]Suggestion, error) {
	catalogFields, err := s.fields.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog fields: %w", err)
	}
	return s.suggester.SuggestMappings(sourceFields, catalogFields), nil
}

// ApplyToRecords runs the source's stored mappings over a record set.
func (s *Service) ApplyToRecords(ctx context.Context, sourceID uuid.UUID, records []domain.SourceRecord) (ApplyResult, error) {
	mappings, err := s.mappings.ListBySource(ctx, sourceID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load mappings: %w", err)
	}
	catalogFields, err := s.fields.List(ctx)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load catalog fields: %w", err)
	}
	return NewTransformer().Apply(records, mappings, catalogFields), nil
}
