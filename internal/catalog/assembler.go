package catalog

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/schema"
)

// Assembler builds unified catalogs from extracted or mapped records.
type Assembler struct {
	analyzer *schema.Analyzer
}

func NewAssembler() *Assembler {
	return &Assembler{analyzer: schema.NewAnalyzer()}
}

// Assemble produces the catalog for one source. TotalRecords always counts
// the full extraction and the schema is always inferred over the full record
// set; maxRecords only truncates the returned record list. Zero means
// unlimited.
func (a *Assembler) Assemble(sourceID uuid.UUID, sourceName string, records []domain.SourceRecord, maxRecords int) domain.UnifiedDataCatalog {
	inferred := a.analyzer.Analyze(records)

	returned := records
	truncated := false
	if maxRecords > 0 && len(records) > maxRecords {
		returned = records[:maxRecords]
		truncated = true
	}

	return domain.UnifiedDataCatalog{
		CatalogID:    uuid.New(),
		SourceID:     sourceID,
		SourceName:   sourceName,
		CreatedAt:    time.Now().UTC(),
		TotalRecords: len(records),
		Schema:       inferred,
		Records:      returned,
		Summary:      domain.CatalogSummary{DataTypes: distinctFormats(records)},
		Meta: domain.CatalogMeta{
			Truncated:       truncated,
			ReturnedRecords: len(returned),
		},
	}
}

// distinctFormats collects the original formats seen across records, sorted
// for stable output.
func distinctFormats(records []domain.SourceRecord) []string {
	seen := map[string]bool{}
	var formats []string
	for _, record := range records {
		format := record.Metadata.OriginalFormat
		if format == "" || seen[format] {
			continue
		}
		seen[format] = true
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}
