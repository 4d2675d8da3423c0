package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CatalogDataType represents the declared type of a catalog field
type CatalogDataType string

const (
	DataTypeString   CatalogDataType = "string"
	DataTypeNumber   CatalogDataType = "number"
	DataTypeCurrency CatalogDataType = "currency"
	DataTypeBoolean  CatalogDataType = "boolean"
	DataTypeDate     CatalogDataType = "date"
	DataTypeDatetime CatalogDataType = "datetime"
	DataTypeEmail    CatalogDataType = "email"
	DataTypeURL      CatalogDataType = "url"
	DataTypeEnum     CatalogDataType = "enum"
	DataTypeArray    CatalogDataType = "array"
	DataTypeObject   CatalogDataType = "object"
)

// KnownDataType reports whether the given data type is part of the catalog type set.
func KnownDataType(t CatalogDataType) bool {
	switch t {
	case DataTypeString, DataTypeNumber, DataTypeCurrency, DataTypeBoolean,
		DataTypeDate, DataTypeDatetime, DataTypeEmail, DataTypeURL,
		DataTypeEnum, DataTypeArray, DataTypeObject:
		return true
	default:
		return false
	}
}

// ValidationRules holds the optional per-field validation constraints.
// Nil pointers mean the constraint is not declared.
type ValidationRules struct {
	Pattern       string   `json:"pattern,omitempty"`
	MinLength     *int     `json:"minLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	MinValue      *float64 `json:"minValue,omitempty"`
	MaxValue      *float64 `json:"maxValue,omitempty"`
	EnumValues    []string `json:"enumValues,omitempty"`
	DecimalPlaces *int     `json:"decimalPlaces,omitempty"`
}

// IsZero reports whether no constraint is declared at all.
func (r ValidationRules) IsZero() bool {
	return r.Pattern == "" && r.MinLength == nil && r.MaxLength == nil &&
		r.MinValue == nil && r.MaxValue == nil && len(r.EnumValues) == 0 &&
		r.DecimalPlaces == nil
}

// CatalogField represents a named, typed target field in the shared schema.
type CatalogField struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	DisplayName     string          `json:"display_name"`
	DataType        CatalogDataType `json:"data_type"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	IsRequired      bool            `json:"is_required"`
	IsStandard      bool            `json:"is_standard"`
	ValidationRules ValidationRules `json:"validation_rules"`
	Tags            []string        `json:"tags,omitempty"`
	RelatedFieldIDs []uuid.UUID     `json:"related_field_ids,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewCatalogField creates a new catalog field with immutable pattern
func NewCatalogField(name, displayName string, dataType CatalogDataType) CatalogField {
	now := time.Now()
	return CatalogField{
		ID:          uuid.New(),
		Name:        NormalizeFieldName(name),
		DisplayName: displayName,
		DataType:    dataType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithValidationRules returns a new field with updated validation rules
func (f CatalogField) WithValidationRules(rules ValidationRules) CatalogField {
	out := f
	out.ValidationRules = rules
	out.Tags = copyStrings(f.Tags)
	out.RelatedFieldIDs = copyUUIDs(f.RelatedFieldIDs)
	out.UpdatedAt = time.Now()
	return out
}

// WithTags returns a new field with updated tags
func (f CatalogField) WithTags(tags ...string) CatalogField {
	out := f
	out.Tags = copyStrings(tags)
	out.RelatedFieldIDs = copyUUIDs(f.RelatedFieldIDs)
	out.UpdatedAt = time.Now()
	return out
}

// WithRelatedFields returns a new field with updated related field links
func (f CatalogField) WithRelatedFields(ids ...uuid.UUID) CatalogField {
	out := f
	out.Tags = copyStrings(f.Tags)
	out.RelatedFieldIDs = copyUUIDs(ids)
	out.UpdatedAt = time.Now()
	return out
}

// WithCategory returns a new field with updated category
func (f CatalogField) WithCategory(category string) CatalogField {
	out := f
	out.Category = category
	out.Tags = copyStrings(f.Tags)
	out.RelatedFieldIDs = copyUUIDs(f.RelatedFieldIDs)
	out.UpdatedAt = time.Now()
	return out
}

// WithRequired returns a new field with updated required flag
func (f CatalogField) WithRequired(required bool) CatalogField {
	out := f
	out.IsRequired = required
	out.Tags = copyStrings(f.Tags)
	out.RelatedFieldIDs = copyUUIDs(f.RelatedFieldIDs)
	out.UpdatedAt = time.Now()
	return out
}

// GetRulesAsJSONB returns the validation rules as JSONB for database storage
func (f CatalogField) GetRulesAsJSONB() (json.RawMessage, error) {
	return json.Marshal(f.ValidationRules)
}

// RulesFromJSONB creates validation rules from JSONB data
func RulesFromJSONB(data json.RawMessage) (ValidationRules, error) {
	var rules ValidationRules
	if len(data) == 0 {
		return rules, nil
	}
	err := json.Unmarshal(data, &rules)
	return rules, err
}

var fieldNamePattern = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeFieldName lowercases a field name and collapses every
// non-alphanumeric run into a single underscore. The same normalization is
// applied to source field names before mapping suggestion so "Customer Email"
// and "customer_email" compare equal.
func NormalizeFieldName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = fieldNamePattern.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// FindRelatedFieldCycle walks the related-field graph and returns an error if
// it contains a cycle. The candidate field replaces its stored version so the
// check covers the state the update would produce.
func FindRelatedFieldCycle(fields []CatalogField, candidate CatalogField) error {
	adjacency := make(map[uuid.UUID][]uuid.UUID, len(fields)+1)
	for _, field := range fields {
		if field.ID == candidate.ID {
			continue
		}
		adjacency[field.ID] = field.RelatedFieldIDs
	}
	adjacency[candidate.ID] = candidate.RelatedFieldIDs

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[uuid.UUID]int, len(adjacency))

	var visit func(id uuid.UUID) error
	visit = func(id uuid.UUID) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("related field graph contains a cycle involving %s", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, next := range adjacency[id] {
			if _, known := adjacency[next]; !known {
				// Dangling reference; existence is checked separately.
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range adjacency {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// copyStrings creates a copy of the string slice to ensure immutability
func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// copyUUIDs creates a copy of the uuid slice to ensure immutability
func copyUUIDs(values []uuid.UUID) []uuid.UUID {
	if values == nil {
		return nil
	}
	out := make([]uuid.UUID, len(values))
	copy(out, values)
	return out
}
