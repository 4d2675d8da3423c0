package domain

import (
	"github.com/google/uuid"
)

// RecordMetadata describes where a record came from and how it was extracted.
type RecordMetadata struct {
	FileName         string   `json:"fileName,omitempty"`
	OriginalFormat   string   `json:"originalFormat"`
	ExtractionMethod string   `json:"extractionMethod"`
	Confidence       float64  `json:"confidence"`
	Relational       bool     `json:"relational,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// SourceRecord is one logical row/item extracted from a data source.
//
// Data values are JSON-shaped: string, float64, bool, nil, []any or
// map[string]any. Records are never mutated in place; mapping produces a new
// record whose Data holds catalog-field keys while SourceData keeps the
// original for traceability.
type SourceRecord struct {
	ID          uuid.UUID      `json:"id"`
	SourceID    uuid.UUID      `json:"sourceId"`
	RecordIndex int            `json:"recordIndex"`
	Data        map[string]any `json:"data"`
	SourceData  map[string]any `json:"sourceData,omitempty"`
	Metadata    RecordMetadata `json:"metadata"`
}

// NewSourceRecord creates a new source record with immutable pattern
func NewSourceRecord(sourceID uuid.UUID, recordIndex int, data map[string]any, metadata RecordMetadata) SourceRecord {
	return SourceRecord{
		ID:          uuid.New(),
		SourceID:    sourceID,
		RecordIndex: recordIndex,
		Data:        CopyRecordData(data),
		Metadata:    metadata,
	}
}

// WithMappedData returns a new record holding mapped data, keeping the
// original data attached as SourceData.
func (r SourceRecord) WithMappedData(mapped map[string]any) SourceRecord {
	out := r
	out.Data = CopyRecordData(mapped)
	out.SourceData = CopyRecordData(r.Data)
	return out
}

// CopyRecordData creates a copy of the record data map to ensure immutability.
// Values are copied shallowly; extractors never hand out aliased nested
// structures, so a per-key copy is sufficient.
func CopyRecordData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
