package extraction

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rpattn/datacatalog/internal/domain"
)

// Format identifies the parsing strategy selected for a file.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

// DetectFormat classifies a file and selects its extractor. It is pure
// routing: unknown or empty content falls through to the plain-text path so
// every input yields at least one record or an explicit empty result.
func DetectFormat(file domain.FileRef) Format {
	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	ext := strings.ToLower(filepath.Ext(file.Name))

	switch {
	case strings.Contains(contentType, "application/json") || ext == ".json":
		return FormatJSON
	case strings.Contains(contentType, "text/csv") || ext == ".csv":
		return FormatCSV
	case strings.Contains(contentType, "spreadsheetml") || ext == ".xlsx":
		return FormatXLSX
	case strings.Contains(contentType, "pdf") || ext == ".pdf" || bytes.HasPrefix(file.Content, []byte("%PDF")):
		return FormatPDF
	case strings.Contains(contentType, "wordprocessingml") || strings.Contains(contentType, "msword") || ext == ".docx" || ext == ".doc":
		return FormatDOCX
	default:
		return FormatText
	}
}
