package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	previewLength   = 500
	maxEntityValues = 5
)

var (
	entityEmailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	entityPhonePattern    = regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)
	entityDatePattern     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{4}\b`)
	entityURLPattern      = regexp.MustCompile(`https?://[^\s)>"']+`)
	entityPercentPattern  = regexp.MustCompile(`\b\d+(?:\.\d+)?%`)
	entityCurrencyPattern = regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?`)

	headingPattern = regexp.MustCompile(`^(#{1,6}\s|[A-Z][A-Z0-9 ,'\-]{3,}$|\d+(\.\d+)*\s+[A-Z])`)
)

// analyzeDocumentText turns unstructured document text into a single
// analysis record: a bounded preview, structural counts, and detected
// entity values. Entities that look like contact information flag the
// record so downstream governance can treat it as potential PII.
func analyzeDocumentText(fileName, text string) (map[string]any, []string) {
	text = strings.TrimSpace(text)

	preview := text
	if len(preview) > previewLength {
		cut := previewLength
		// Back up to a rune boundary so the preview stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}

	lines := splitNonBlankLines(text)
	words := strings.Fields(text)
	paragraphs := countParagraphs(text)
	headings := countHeadings(lines)

	entities := map[string][]string{}
	addEntities(entities, "emails", entityEmailPattern.FindAllString(text, -1))
	addEntities(entities, "phones", entityPhonePattern.FindAllString(text, -1))
	addEntities(entities, "dates", entityDatePattern.FindAllString(text, -1))
	addEntities(entities, "urls", entityURLPattern.FindAllString(text, -1))
	addEntities(entities, "percentages", entityPercentPattern.FindAllString(text, -1))
	addEntities(entities, "currencies", entityCurrencyPattern.FindAllString(text, -1))

	record := map[string]any{
		"file_name":       fileName,
		"content_preview": preview,
		"line_count":      float64(len(lines)),
		"word_count":      float64(len(words)),
		"paragraph_count": float64(paragraphs),
		"heading_count":   float64(headings),
	}
	for kind, values := range entities {
		record[kind] = stringsToAny(values)
	}

	var warnings []string
	if len(entities["emails"]) > 0 || len(entities["phones"]) > 0 {
		record["contains_contact_info"] = true
		warnings = append(warnings, fmt.Sprintf("%s: document contains contact information (possible PII)", fileName))
	}

	return record, warnings
}

func addEntities(entities map[string][]string, kind string, matches []string) {
	if len(matches) == 0 {
		return
	}
	seen := map[string]bool{}
	var values []string
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		values = append(values, m)
		if len(values) >= maxEntityValues {
			break
		}
	}
	if len(values) > 0 {
		entities[kind] = values
	}
}

func splitNonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func countParagraphs(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	count := 0
	for _, block := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

func countHeadings(lines []string) int {
	count := 0
	for _, line := range lines {
		if headingPattern.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
