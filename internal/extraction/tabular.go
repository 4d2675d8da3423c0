package extraction

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// fileRecords is the per-file extraction payload before records are assembled.
type fileRecords struct {
	rows       []map[string]any
	fieldOrder []string
	skipped    int
	warnings   []string
}

// extractCSV parses CSV content. The first non-blank line is the header row;
// each subsequent line becomes one record keyed by header names. Rows whose
// value count mismatches the header count are skipped and counted, never
// silently dropped from diagnostics.
func extractCSV(fileName string, content []byte) fileRecords {
	content = bytes.TrimPrefix(content, byteOrderMark)
	if len(bytes.TrimSpace(content)) == 0 {
		return fileRecords{}
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	parseFailures := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line; skip it and keep reading the rest of the file.
			parseFailures++
			continue
		}
		rows = append(rows, row)
	}

	out := tabularRecords(rows)
	out.skipped += parseFailures
	if parseFailures > 0 {
		out.warnings = append(out.warnings, fmt.Sprintf("%s: %d unparseable csv lines skipped", fileName, parseFailures))
	}
	if out.skipped > parseFailures {
		out.warnings = append(out.warnings, fmt.Sprintf("%s: %d rows skipped due to column count mismatch", fileName, out.skipped-parseFailures))
	}
	return out
}

// extractXLSX reads the first sheet of a workbook and feeds it through the
// same header/typing rules as CSV.
func extractXLSX(fileName string, content []byte) fileRecords {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return fileRecords{warnings: []string{fmt.Sprintf("%s: failed to open xlsx: %v", fileName, err)}}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fileRecords{warnings: []string{fmt.Sprintf("%s: excel file has no sheets", fileName)}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fileRecords{warnings: []string{fmt.Sprintf("%s: failed to read rows from xlsx: %v", fileName, err)}}
	}

	out := tabularRecords(rows)
	if out.skipped > 0 {
		out.warnings = append(out.warnings, fmt.Sprintf("%s: %d rows skipped due to column count mismatch", fileName, out.skipped))
	}
	return out
}

// tabularRecords turns raw rows into typed records. Header names stay
// source-native (trimmed only); mapping to catalog names happens later.
func tabularRecords(rows [][]string) fileRecords {
	var headers []string
	var out fileRecords

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if headers == nil {
			headers = headerNames(row)
			out.fieldOrder = append([]string(nil), headers...)
			continue
		}
		if len(row) != len(headers) {
			out.skipped++
			continue
		}
		record := make(map[string]any, len(headers))
		for i, header := range headers {
			record[header] = convertScalar(row[i])
		}
		out.rows = append(out.rows, record)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func headerNames(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = name
	}
	return headers
}

var (
	numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	isoDatePrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// convertScalar opportunistically types a cell value: pure integers and
// decimals become numbers, true/false become booleans, YYYY-MM-DD-prefixed
// strings that parse as valid dates become ISO datetime strings, the empty
// string becomes nil, and everything else stays a string.
func convertScalar(raw string) any {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	if numericPattern.MatchString(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}

	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if isoDatePrefix.MatchString(value) {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
		if ts, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}

	return value
}
