package mapping

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/pkg/validator"
)

// RecordValidationError groups one record's validation failures.
type RecordValidationError struct {
	RecordIndex int                         `json:"recordIndex"`
	Errors      []validator.ValidationError `json:"errors"`
}

// Statistics summarizes how much of the source the mappings covered.
type Statistics struct {
	TotalFieldCount  int      `json:"totalFieldCount"`
	MappedFieldCount int      `json:"mappedFieldCount"`
	UnmappedFields   []string `json:"unmappedFields"`
	RecordCount      int      `json:"recordCount"`
	InvalidRecords   int      `json:"invalidRecords"`
}

// ApplyResult is the outcome of applying field mappings to a record set.
type ApplyResult struct {
	Records    []domain.SourceRecord   `json:"records"`
	Fields     []string                `json:"fields"`
	Statistics Statistics              `json:"statistics"`
	Errors     []RecordValidationError `json:"errors"`
	Warnings   []string                `json:"warnings"`
}

// Transformer applies field mappings and their transformation rules.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// compiledMapping is a mapping resolved against the catalog, with its rule
// pre-compiled so per-record work stays cheap.
type compiledMapping struct {
	sourceField string
	target      domain.CatalogField
	rule        *domain.TransformationRule
	pattern     *regexp.Regexp
}

// Apply maps each record's source fields onto catalog field names, running
// transformation rules and validating the results. Source fields without a
// mapping pass through under their original names, so no data is lost.
// Mapped source fields absent from a record are validated as missing values,
// so a required catalog field reports an error even when the key never
// appears. Records are not mutated; every output record carries its original
// data as SourceData. Applying the same mappings to an already-mapped output
// is a no-op because catalog field names are not mapping sources.
func (t *Transformer) Apply(records []domain.SourceRecord, mappings []domain.FieldMapping, catalogFields []domain.CatalogField) ApplyResult {
	fieldsByID := make(map[uuid.UUID]domain.CatalogField, len(catalogFields))
	for _, cf := range catalogFields {
		fieldsByID[cf.ID] = cf
	}

	warnings := map[string]bool{}
	compiled := make(map[string]compiledMapping, len(mappings))
	for _, m := range mappings {
		target, ok := fieldsByID[m.CatalogFieldID]
		if !ok {
			warnings[fmt.Sprintf("mapping for %q references unknown catalog field %s, skipped", m.SourceFieldName, m.CatalogFieldID)] = true
			continue
		}
		compiled[m.SourceFieldName] = compileMapping(m, target, warnings)
	}

	compiledFields := make([]string, 0, len(compiled))
	for field := range compiled {
		compiledFields = append(compiledFields, field)
	}
	sort.Strings(compiledFields)

	result := ApplyResult{Statistics: Statistics{RecordCount: len(records)}}
	seenFields := map[string]bool{}
	mappedSources := map[string]bool{}
	unmappedSources := map[string]bool{}

	for _, record := range records {
		mapped := make(map[string]any, len(record.Data))
		var recordErrors []validator.ValidationError

		for _, key := range sortedKeys(record.Data) {
			value := record.Data[key]
			cm, ok := compiled[key]
			if !ok {
				if _, taken := mapped[key]; taken {
					warnings[fmt.Sprintf("source field %q collides with mapped catalog field name, source value kept", key)] = true
				}
				mapped[key] = value
				unmappedSources[key] = true
				continue
			}
			mappedSources[key] = true

			transformed := applyRule(cm, value)
			if _, taken := mapped[cm.target.Name]; taken {
				warnings[fmt.Sprintf("mapping %q -> %q overwrites a source field of the same name", cm.sourceField, cm.target.Name)] = true
			}
			mapped[cm.target.Name] = transformed

			if vr := validator.ValidateFieldValue(transformed, cm.target); !vr.IsValid {
				recordErrors = append(recordErrors, vr.Errors...)
			}
		}

		// Mapped fields missing from this record still count as empty values
		// for the target, so required catalog fields are never skipped.
		for _, sourceField := range compiledFields {
			if _, present := record.Data[sourceField]; present {
				continue
			}
			if vr := validator.ValidateFieldValue(nil, compiled[sourceField].target); !vr.IsValid {
				recordErrors = append(recordErrors, vr.Errors...)
			}
		}

		out := record.WithMappedData(mapped)
		for _, key := range sortedKeys(mapped) {
			if !seenFields[key] {
				seenFields[key] = true
				result.Fields = append(result.Fields, key)
			}
		}
		result.Records = append(result.Records, out)
		if len(recordErrors) > 0 {
			result.Statistics.InvalidRecords++
			result.Errors = append(result.Errors, RecordValidationError{
				RecordIndex: record.RecordIndex,
				Errors:      recordErrors,
			})
		}
	}

	result.Statistics.MappedFieldCount = len(mappedSources)
	result.Statistics.TotalFieldCount = len(mappedSources) + len(unmappedSources)
	result.Statistics.UnmappedFields = sortedSetKeys(unmappedSources)
	result.Warnings = sortedSetKeys(warnings)
	return result
}

// compileMapping resolves the mapping's rule. Unsupported rule types and
// broken patterns degrade to a direct copy with a warning, never a dropped
// value.
func compileMapping(m domain.FieldMapping, target domain.CatalogField, warnings map[string]bool) compiledMapping {
	cm := compiledMapping{sourceField: m.SourceFieldName, target: target, rule: m.TransformationRule}
	if m.TransformationRule == nil {
		return cm
	}

	switch m.TransformationRule.Type {
	case domain.RuleTypeDirect, "":
	case domain.RuleTypeFormat:
		re, err := regexp.Compile(m.TransformationRule.Pattern)
		if err != nil {
			warnings[fmt.Sprintf("mapping %q -> %q: invalid format pattern %q, applied as direct copy", m.SourceFieldName, target.Name, m.TransformationRule.Pattern)] = true
			cm.rule = nil
			return cm
		}
		cm.pattern = re
	default:
		warnings[fmt.Sprintf("mapping %q -> %q: rule type %q not supported, applied as direct copy", m.SourceFieldName, target.Name, m.TransformationRule.Type)] = true
		cm.rule = nil
	}
	return cm
}

func applyRule(cm compiledMapping, value any) any {
	if cm.rule == nil || cm.pattern == nil {
		return value
	}
	str, ok := value.(string)
	if !ok {
		return value
	}
	if !cm.pattern.MatchString(str) {
		return str
	}
	return cm.pattern.ReplaceAllString(str, cm.rule.Replacement)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSetKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
