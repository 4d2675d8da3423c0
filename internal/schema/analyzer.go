package schema

import (
	"sort"

	"github.com/rpattn/datacatalog/internal/domain"
)

const maxExamples = 3

// Analyzer infers a field-level schema from extracted records.
type Analyzer struct {
	maxExamples int
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{maxExamples: maxExamples}
}

type fieldState struct {
	types    map[string]bool
	examples []any
	nullSeen bool
	present  int
}

// Analyze walks every record and derives one SchemaField per distinct key.
//
// A field observed with more than one non-null type reports "mixed"; a field
// never observed non-null reports "null". Nullable means the field was null
// in at least one record or absent from at least one. Examples keep the first
// distinct non-null values seen, in encounter order. Output is sorted by
// field name so the same records always produce the same schema, regardless
// of record count or ordering.
func (a *Analyzer) Analyze(records []domain.SourceRecord) domain.InferredSchema {
	states := map[string]*fieldState{}
	var order []string

	for _, record := range records {
		for key, value := range record.Data {
			state, ok := states[key]
			if !ok {
				state = &fieldState{types: map[string]bool{}}
				states[key] = state
				order = append(order, key)
			}
			state.present++
			if value == nil {
				state.nullSeen = true
				continue
			}
			state.types[valueType(value)] = true
			if len(state.examples) < a.maxExamples && !containsExample(state.examples, value) {
				state.examples = append(state.examples, value)
			}
		}
	}

	fields := make([]domain.SchemaField, 0, len(states))
	for _, key := range order {
		state := states[key]
		fields = append(fields, domain.SchemaField{
			Name:     key,
			Type:     resolveType(state.types),
			Nullable: state.nullSeen || state.present < len(records),
			Examples: state.examples,
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	return domain.InferredSchema{Fields: fields}
}

func resolveType(types map[string]bool) string {
	switch len(types) {
	case 0:
		return "null"
	case 1:
		for t := range types {
			return t
		}
	}
	return "mixed"
}

// valueType names the JSON-shaped type of a value.
func valueType(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func containsExample(examples []any, value any) bool {
	for _, ex := range examples {
		if exampleEqual(ex, value) {
			return true
		}
	}
	return false
}

// exampleEqual compares scalar examples; composite values are never
// considered duplicates so nested structures stay as distinct samples.
func exampleEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}
