package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recordArrayKeys are checked, in order, when a JSON file holds a single
// object wrapping its record array.
var recordArrayKeys = []string{"records", "data", "items"}

// extractJSONRecords parses JSON content into records. Array input yields one
// record per element with structure preserved verbatim; a single object
// containing an array under records/data/items is unwrapped; any other object
// becomes one record. Malformed JSON yields zero records and a warning so one
// bad file never aborts the whole source.
func extractJSONRecords(fileName string, content []byte) fileRecords {
	var parsed any
	if err := json.Unmarshal(content, &parsed); err != nil {
		return fileRecords{warnings: []string{fmt.Sprintf("%s: malformed JSON: %v", fileName, err)}}
	}

	var out fileRecords
	switch v := parsed.(type) {
	case []any:
		out.rows = elementsToRows(v)
		out.fieldOrder = recordKeyOrder(content, "")
	case map[string]any:
		unwrapped := ""
		for _, key := range recordArrayKeys {
			if arr, ok := v[key].([]any); ok {
				out.rows = elementsToRows(arr)
				unwrapped = key
				break
			}
		}
		if unwrapped == "" {
			out.rows = []map[string]any{v}
			out.fieldOrder = rootObjectKeyOrder(content)
		} else {
			out.fieldOrder = recordKeyOrder(content, unwrapped)
		}
	default:
		out.rows = []map[string]any{{"value": v}}
		out.warnings = append(out.warnings, fmt.Sprintf("%s: JSON root is a bare value, wrapped as a single record", fileName))
		out.fieldOrder = []string{"value"}
	}

	return out
}

func elementsToRows(elements []any) []map[string]any {
	rows := make([]map[string]any, 0, len(elements))
	for _, element := range elements {
		if m, ok := element.(map[string]any); ok {
			rows = append(rows, m)
			continue
		}
		rows = append(rows, map[string]any{"value": element})
	}
	return rows
}

// rootObjectKeyOrder returns the key order of the document's root object.
// encoding/json maps lose declaration order, so key order is recovered from
// the raw token stream; it is what keeps loadSourceFields stable for JSON.
func rootObjectKeyOrder(content []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	return objectKeys(dec)
}

// recordKeyOrder returns the key order of the first record object. With an
// empty wrapKey the document root is an array; otherwise the record array
// lives under wrapKey in the root object.
func recordKeyOrder(content []byte, wrapKey string) []string {
	dec := json.NewDecoder(bytes.NewReader(content))

	if wrapKey != "" {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return nil
		}
		// Advance to the wrap key at the root level.
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil
			}
			key, ok := tok.(string)
			if !ok {
				return nil
			}
			if key == wrapKey {
				break
			}
			if err := skipValue(dec); err != nil {
				return nil
			}
		}
	}

	// Find the opening bracket of the record array, then the first element.
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil
	}
	if !dec.More() {
		return nil
	}
	tok, err = dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	return objectKeys(dec)
}

func objectKeys(dec *json.Decoder) []string {
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return keys
		}
	}
	return keys
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if delim == '{' || delim == '[' {
		depth := 1
		for depth > 0 {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}
