package domain

import (
	"time"

	"github.com/google/uuid"
)

// SchemaField is one inferred field in a source schema. It is derived from a
// record sample each time analysis runs and is never stored as ground truth.
type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Examples []any  `json:"examples"`
}

// InferredSchema is the result of scanning a record set.
type InferredSchema struct {
	Fields []SchemaField `json:"fields"`
}

// FieldByName returns the schema entry for the given field name.
func (s InferredSchema) FieldByName(name string) (SchemaField, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return SchemaField{}, false
}

// CatalogSummary carries diagnostic aggregates for a unified catalog.
type CatalogSummary struct {
	DataTypes []string `json:"dataTypes"`
}

// CatalogMeta describes truncation applied to the returned record list.
type CatalogMeta struct {
	Truncated       bool `json:"truncated"`
	ReturnedRecords int  `json:"returnedRecords"`
}

// UnifiedDataCatalog is the normalized, schema-annotated output of
// transforming one data source. Serialized as 2-space-indented JSON it is the
// one wire format with compatibility value: consumers depend on totalRecords,
// records[].data and schema.fields[] exactly as declared here.
type UnifiedDataCatalog struct {
	CatalogID    uuid.UUID      `json:"catalogId"`
	SourceID     uuid.UUID      `json:"sourceId"`
	SourceName   string         `json:"sourceName"`
	CreatedAt    time.Time      `json:"createdAt"`
	TotalRecords int            `json:"totalRecords"`
	Schema       InferredSchema `json:"schema"`
	Records      []SourceRecord `json:"records"`
	Summary      CatalogSummary `json:"summary"`
	Meta         CatalogMeta    `json:"meta"`
}
