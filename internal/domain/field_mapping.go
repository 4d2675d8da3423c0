package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransformationRuleType enumerates the supported transformation rule variants.
type TransformationRuleType string

const (
	RuleTypeDirect      TransformationRuleType = "direct"
	RuleTypeFormat      TransformationRuleType = "format"
	RuleTypeCalculation TransformationRuleType = "calculation"
	RuleTypeLookup      TransformationRuleType = "lookup"
	RuleTypeConditional TransformationRuleType = "conditional"
)

// KnownRuleType reports whether the rule type is part of the declared variant set.
// Unknown types are still accepted at apply time and degrade to a direct copy.
func KnownRuleType(t TransformationRuleType) bool {
	switch t {
	case RuleTypeDirect, RuleTypeFormat, RuleTypeCalculation, RuleTypeLookup, RuleTypeConditional:
		return true
	default:
		return false
	}
}

// TransformationRule describes how a mapped value is rewritten while a record
// is translated into catalog terms. Only direct and format are executed;
// calculation, lookup and conditional are stored for forward compatibility and
// applied as direct with a warning.
type TransformationRule struct {
	Type        TransformationRuleType `json:"type"`
	Pattern     string                 `json:"pattern,omitempty"`
	Replacement string                 `json:"replacement,omitempty"`
	Expression  string                 `json:"expression,omitempty"`
	Parameters  map[string]any         `json:"parameters,omitempty"`
}

// FieldMapping binds one source field to one catalog field, scoped to a source.
type FieldMapping struct {
	ID                 uuid.UUID           `json:"id"`
	SourceID           uuid.UUID           `json:"source_id"`
	SourceFieldName    string              `json:"source_field_name"`
	CatalogFieldID     uuid.UUID           `json:"catalog_field_id"`
	TransformationRule *TransformationRule `json:"transformation_rule,omitempty"`
	Confidence         float64             `json:"confidence"`
	IsManual           bool                `json:"is_manual"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewFieldMapping creates a new field mapping with immutable pattern
func NewFieldMapping(sourceID uuid.UUID, sourceFieldName string, catalogFieldID uuid.UUID) FieldMapping {
	now := time.Now()
	return FieldMapping{
		ID:              uuid.New(),
		SourceID:        sourceID,
		SourceFieldName: sourceFieldName,
		CatalogFieldID:  catalogFieldID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// WithRule returns a new mapping with an updated transformation rule
func (m FieldMapping) WithRule(rule *TransformationRule) FieldMapping {
	out := m
	if rule != nil {
		ruleCopy := *rule
		out.TransformationRule = &ruleCopy
	} else {
		out.TransformationRule = nil
	}
	out.UpdatedAt = time.Now()
	return out
}

// WithConfidence returns a new mapping with an updated confidence score
func (m FieldMapping) WithConfidence(confidence float64, manual bool) FieldMapping {
	out := m
	out.Confidence = confidence
	out.IsManual = manual
	out.UpdatedAt = time.Now()
	return out
}

// GetRuleAsJSONB returns the transformation rule as JSONB for database storage
func (m FieldMapping) GetRuleAsJSONB() (json.RawMessage, error) {
	if m.TransformationRule == nil {
		return nil, nil
	}
	return json.Marshal(m.TransformationRule)
}

// RuleFromJSONB hydrates a stored transformation rule.
func RuleFromJSONB(data json.RawMessage) (*TransformationRule, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rule TransformationRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}
