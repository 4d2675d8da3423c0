package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
)

// Extraction confidence by how structured the input format is.
const (
	confidenceStructured = 1.0
	confidenceText       = 0.8
	confidenceDocument   = 0.7
)

const defaultMaxFileBytes = int64(50 * 1024 * 1024)

// LogRepository records row-level extraction failures. It is optional; a nil
// repository disables persistence without disabling extraction.
type LogRepository interface {
	Insert(ctx context.Context, entry domain.TransformLogEntry) error
}

// Result is the outcome of extracting one data source.
type Result struct {
	Records     []domain.SourceRecord
	FieldOrder  []string
	SkippedRows int
	Warnings    []string
}

// Service turns data source configurations into normalized source records.
type Service struct {
	maxFileBytes int64
	logRepo      LogRepository
}

// Option configures a Service.
type Option func(*Service)

// WithMaxFileBytes caps the size of any single file the service will parse.
func WithMaxFileBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFileBytes = n
		}
	}
}

// WithLogRepository enables persistence of row-level extraction failures.
func WithLogRepository(repo LogRepository) Option {
	return func(s *Service) { s.logRepo = repo }
}

func NewService(opts ...Option) *Service {
	s := &Service{maxFileBytes: defaultMaxFileBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractSource extracts every record a source can produce. Record indexes
// are dense and monotonically increasing across all files of the source.
// A failing file contributes a warning, never an aborted extraction; only a
// cancelled context stops the run.
func (s *Service) ExtractSource(ctx context.Context, source domain.DataSource) (Result, error) {
	switch source.Type {
	case domain.SourceTypeDatabase:
		return s.assemble(ctx, source, []namedFileRecords{{
			name:    source.Name,
			format:  "database",
			method:  "database_rows",
			records: extractDatabaseRows(source),
		}})
	case domain.SourceTypeAPI:
		return s.assemble(ctx, source, []namedFileRecords{{
			name:    source.Name,
			format:  "api",
			method:  "api_payload",
			records: extractAPIPayload(source),
		}})
	}

	var extracted []namedFileRecords
	for _, file := range source.Configuration.Files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		extracted = append(extracted, s.extractFile(file))
	}
	return s.assemble(ctx, source, extracted)
}

// namedFileRecords pairs a file's extraction payload with the metadata that
// stamps each of its records.
type namedFileRecords struct {
	name       string
	format     string
	method     string
	confidence float64
	records    fileRecords
}

func (s *Service) extractFile(file domain.FileRef) namedFileRecords {
	size := file.Size
	if size == 0 {
		size = int64(len(file.Content))
	}
	if size > s.maxFileBytes {
		return namedFileRecords{
			name:   file.Name,
			format: string(DetectFormat(file)),
			records: fileRecords{warnings: []string{
				fmt.Sprintf("%s: file size %d exceeds limit %d, skipped", file.Name, size, s.maxFileBytes),
			}},
		}
	}

	format := DetectFormat(file)
	out := namedFileRecords{name: file.Name, format: string(format), confidence: confidenceStructured}

	switch format {
	case FormatCSV:
		out.method = "csv_header_mapping"
		out.records = extractCSV(file.Name, file.Content)
	case FormatXLSX:
		out.method = "csv_header_mapping"
		out.records = extractXLSX(file.Name, file.Content)
	case FormatJSON:
		out.method = "json_passthrough"
		out.records = extractJSONRecords(file.Name, file.Content)
	case FormatPDF:
		out.method = "document_analysis"
		out.confidence = confidenceDocument
		out.records = s.extractPDF(file)
	case FormatDOCX:
		out.method = "document_analysis"
		out.confidence = confidenceDocument
		out.records = extractDOCX(file)
	default:
		out.method = "plain_text"
		out.confidence = confidenceText
		out.records = extractPlainText(file.Name, file.Content)
	}
	return out
}

func (s *Service) extractPDF(file domain.FileRef) fileRecords {
	text, err := extractPDFText(file.Content)
	if err != nil {
		log.Printf("[extract] pdf %s: %v", file.Name, err)
		return fileRecords{warnings: []string{fmt.Sprintf("%s: pdf text extraction failed: %v", file.Name, err)}}
	}
	record, warnings := analyzeDocumentText(file.Name, text)
	return fileRecords{rows: []map[string]any{record}, warnings: warnings}
}

// extractDOCX analyzes word-processing files. Binary OOXML archives are not
// unpacked; only plain-text exports carry analyzable content.
func extractDOCX(file domain.FileRef) fileRecords {
	if bytes.HasPrefix(file.Content, []byte("PK")) {
		return fileRecords{warnings: []string{
			fmt.Sprintf("%s: binary word document, text extraction unsupported", file.Name),
		}}
	}
	record, warnings := analyzeDocumentText(file.Name, string(file.Content))
	return fileRecords{rows: []map[string]any{record}, warnings: warnings}
}

func (s *Service) assemble(ctx context.Context, source domain.DataSource, extracted []namedFileRecords) (Result, error) {
	var result Result
	seenFields := map[string]bool{}
	index := 0

	for _, ext := range extracted {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		result.SkippedRows += ext.records.skipped
		result.Warnings = append(result.Warnings, ext.records.warnings...)
		for _, warning := range ext.records.warnings {
			s.logRowError(ctx, source.ID, ext.name, nil, warning)
		}

		confidence := ext.confidence
		if confidence == 0 {
			confidence = confidenceStructured
		}

		for _, field := range ext.records.fieldOrder {
			if !seenFields[field] {
				seenFields[field] = true
				result.FieldOrder = append(result.FieldOrder, field)
			}
		}

		for _, row := range ext.records.rows {
			meta := domain.RecordMetadata{
				FileName:         ext.name,
				OriginalFormat:   ext.format,
				ExtractionMethod: ext.method,
				Confidence:       confidence,
				Relational:       source.Configuration.Relational,
			}
			result.Records = append(result.Records, domain.NewSourceRecord(source.ID, index, row, meta))
			index++
		}
	}

	if result.SkippedRows > 0 {
		log.Printf("[extract] source %s: %d rows skipped during extraction", source.Name, result.SkippedRows)
	}
	return result, nil
}

// logRowError persists a failure row when a log repository is configured.
// Persistence failures are logged and swallowed so diagnostics never break
// the extraction itself.
func (s *Service) logRowError(ctx context.Context, sourceID uuid.UUID, fileName string, recordIndex *int, message string) {
	if s.logRepo == nil {
		return
	}
	entry := domain.NewTransformLogEntry(sourceID, fileName, recordIndex, message)
	if err := s.logRepo.Insert(ctx, entry); err != nil {
		log.Printf("[extract] failed to record transform log for %s: %v", fileName, err)
	}
}

// LoadSourceFields returns the source's field names in their native order,
// without materializing full records, for mapping suggestion flows.
func (s *Service) LoadSourceFields(ctx context.Context, source domain.DataSource) ([]string, error) {
	result, err := s.ExtractSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(result.FieldOrder) > 0 {
		return result.FieldOrder, nil
	}
	// Fall back to the union of record keys for formats with no declared order.
	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, rec.Data)
	}
	return rowKeyUnion(rows), nil
}
