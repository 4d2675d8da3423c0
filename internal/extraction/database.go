package extraction

import (
	"fmt"
	"sort"

	"github.com/rpattn/datacatalog/internal/domain"
)

// extractDatabaseRows materializes configured database rows as records.
// Sources without captured rows still yield one metadata record so the
// catalog shows the connection exists even before any data arrives.
func extractDatabaseRows(source domain.DataSource) fileRecords {
	rows := source.Configuration.Data
	if len(rows) == 0 {
		record := map[string]any{
			"source_name": source.Name,
			"source_type": string(source.Type),
			"connected":   false,
		}
		return fileRecords{
			rows:       []map[string]any{record},
			fieldOrder: []string{"source_name", "source_type", "connected"},
			warnings:   []string{fmt.Sprintf("%s: database source has no captured rows, emitted metadata record", source.Name)},
		}
	}

	out := fileRecords{rows: make([]map[string]any, 0, len(rows))}
	for _, row := range rows {
		out.rows = append(out.rows, domain.CopyRecordData(row))
	}
	out.fieldOrder = rowKeyUnion(out.rows)
	return out
}

// extractAPIPayload reads records from an API source: inline captured data
// first, then the first attached JSON response body.
func extractAPIPayload(source domain.DataSource) fileRecords {
	if len(source.Configuration.Data) > 0 {
		out := fileRecords{rows: make([]map[string]any, 0, len(source.Configuration.Data))}
		for _, row := range source.Configuration.Data {
			out.rows = append(out.rows, domain.CopyRecordData(row))
		}
		out.fieldOrder = rowKeyUnion(out.rows)
		return out
	}

	for _, file := range source.Configuration.Files {
		if DetectFormat(file) == FormatJSON {
			return extractJSONRecords(file.Name, file.Content)
		}
	}

	record := map[string]any{
		"source_name": source.Name,
		"source_type": string(source.Type),
		"connected":   false,
	}
	return fileRecords{
		rows:       []map[string]any{record},
		fieldOrder: []string{"source_name", "source_type", "connected"},
		warnings:   []string{fmt.Sprintf("%s: api source has no payload, emitted metadata record", source.Name)},
	}
}

// rowKeyUnion collects every key appearing across rows, sorted within each
// row before merging so the order is stable for sources with no declared
// column order.
func rowKeyUnion(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		rowKeys := make([]string, 0, len(row))
		for key := range row {
			rowKeys = append(rowKeys, key)
		}
		sort.Strings(rowKeys)
		for _, key := range rowKeys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
