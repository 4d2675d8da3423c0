package extraction

import "strings"

// extractPlainText produces one record summarizing a plain-text file.
func extractPlainText(fileName string, content []byte) fileRecords {
	text := strings.TrimSpace(string(content))
	record := map[string]any{
		"file_name":       fileName,
		"text":            text,
		"line_count":      float64(len(splitNonBlankLines(text))),
		"word_count":      float64(len(strings.Fields(text))),
		"character_count": float64(len(text)),
	}
	return fileRecords{
		rows:       []map[string]any{record},
		fieldOrder: []string{"file_name", "text", "line_count", "word_count", "character_count"},
	}
}
