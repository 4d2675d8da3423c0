package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/datacatalog/internal/domain"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validating one value
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	dateLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"01/02/2006",
	}
)

// ValidateFieldValue validates a single value against a catalog field's
// declared rules. It is a pure function with no side effects, used both by
// the mapping transformer and standalone field-edit flows.
//
// Type-specific rules apply only when the value is present and non-empty.
// The required-field check is independent, so a required field with an invalid
// value reports both errors.
func ValidateFieldValue(value any, field domain.CatalogField) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}

	if field.IsRequired && isEmptyValue(value) {
		result.addError(field.Name, fmt.Sprintf("%s is required", displayName(field)), value)
	}
	if isEmptyValue(value) {
		return result
	}

	switch field.DataType {
	case domain.DataTypeString, domain.DataTypeEnum:
		validateString(value, field, &result)
	case domain.DataTypeNumber:
		validateNumber(value, field, false, &result)
	case domain.DataTypeCurrency:
		validateNumber(value, field, true, &result)
	case domain.DataTypeBoolean:
		validateBoolean(value, field, &result)
	case domain.DataTypeDate, domain.DataTypeDatetime:
		validateDate(value, field, &result)
	case domain.DataTypeEmail:
		validateEmail(value, field, &result)
	case domain.DataTypeURL:
		validateURL(value, field, &result)
	case domain.DataTypeArray:
		if _, ok := value.([]any); !ok {
			result.addError(field.Name, fmt.Sprintf("%s must be an array, got %T", displayName(field), value), value)
		}
	case domain.DataTypeObject:
		if _, ok := value.(map[string]any); !ok {
			result.addError(field.Name, fmt.Sprintf("%s must be an object, got %T", displayName(field), value), value)
		}
	}

	return result
}

func (r *ValidationResult) addError(fieldName, message string, value any) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: fieldName, Message: message, Value: value})
}

func validateString(value any, field domain.CatalogField, result *ValidationResult) {
	str, ok := value.(string)
	if !ok {
		result.addError(field.Name, fmt.Sprintf("%s must be a string, got %T", displayName(field), value), value)
		return
	}

	rules := field.ValidationRules
	if rules.MinLength != nil && len(str) < *rules.MinLength {
		result.addError(field.Name, fmt.Sprintf("%s length %d is less than minimum %d", displayName(field), len(str), *rules.MinLength), value)
	}
	if rules.MaxLength != nil && len(str) > *rules.MaxLength {
		result.addError(field.Name, fmt.Sprintf("%s length %d exceeds maximum %d", displayName(field), len(str), *rules.MaxLength), value)
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			// Broken declared pattern is a configuration problem; the value
			// itself is not at fault, so the check is skipped.
			return
		}
		if !re.MatchString(str) {
			result.addError(field.Name, fmt.Sprintf("%s does not match pattern %s", displayName(field), rules.Pattern), value)
		}
	}
	if len(rules.EnumValues) > 0 && !containsString(rules.EnumValues, str) {
		result.addError(field.Name, fmt.Sprintf("%s must be one of [%s]", displayName(field), strings.Join(rules.EnumValues, ", ")), value)
	}
}

func validateNumber(value any, field domain.CatalogField, currency bool, result *ValidationResult) {
	num, ok := coerceNumeric(value)
	if !ok {
		result.addError(field.Name, fmt.Sprintf("%s must be a number, got %T", displayName(field), value), value)
		return
	}

	rules := field.ValidationRules
	if rules.MinValue != nil && num < *rules.MinValue {
		result.addError(field.Name, fmt.Sprintf("%s value %v is less than minimum %v", displayName(field), num, *rules.MinValue), value)
	}
	if rules.MaxValue != nil && num > *rules.MaxValue {
		result.addError(field.Name, fmt.Sprintf("%s value %v exceeds maximum %v", displayName(field), num, *rules.MaxValue), value)
	}
	if currency && rules.DecimalPlaces != nil {
		if places := decimalPlaces(value, num); places > *rules.DecimalPlaces {
			result.addError(field.Name, fmt.Sprintf("%s has %d decimal places, maximum is %d", displayName(field), places, *rules.DecimalPlaces), value)
		}
	}
}

func validateBoolean(value any, field domain.CatalogField, result *ValidationResult) {
	switch v := value.(type) {
	case bool:
	case string:
		if _, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err != nil {
			result.addError(field.Name, fmt.Sprintf("%s must be a boolean", displayName(field)), value)
		}
	default:
		result.addError(field.Name, fmt.Sprintf("%s must be a boolean, got %T", displayName(field), value), value)
	}
}

func validateDate(value any, field domain.CatalogField, result *ValidationResult) {
	switch v := value.(type) {
	case time.Time:
	case string:
		if _, err := parseDate(v); err != nil {
			result.addError(field.Name, fmt.Sprintf("%s must be a valid date: %v", displayName(field), err), value)
		}
	default:
		result.addError(field.Name, fmt.Sprintf("%s must be a date string, got %T", displayName(field), value), value)
	}
}

func validateEmail(value any, field domain.CatalogField, result *ValidationResult) {
	str, ok := value.(string)
	if !ok || !emailPattern.MatchString(str) {
		result.addError(field.Name, fmt.Sprintf("%s must be a valid email address", displayName(field)), value)
	}
}

func validateURL(value any, field domain.CatalogField, result *ValidationResult) {
	str, ok := value.(string)
	if !ok {
		result.addError(field.Name, fmt.Sprintf("%s must be a URL string, got %T", displayName(field), value), value)
		return
	}
	parsed, err := url.Parse(str)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		result.addError(field.Name, fmt.Sprintf("%s must be an absolute URL", displayName(field)), value)
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// coerceNumeric interprets JSON-shaped and string-carried numbers.
func coerceNumeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// decimalPlaces counts digits after the first '.' in the value's plain decimal
// representation. String inputs are counted verbatim so "10.50" keeps both
// places; other numerics go through a non-exponential format first.
func decimalPlaces(original any, num float64) int {
	text := ""
	if str, ok := original.(string); ok {
		text = strings.TrimSpace(str)
	} else {
		text = strconv.FormatFloat(num, 'f', -1, 64)
	}
	idx := strings.Index(text, ".")
	if idx < 0 {
		return 0
	}
	return len(text) - idx - 1
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str) == ""
	}
	return false
}

func displayName(field domain.CatalogField) string {
	if strings.TrimSpace(field.DisplayName) != "" {
		return field.DisplayName
	}
	return field.Name
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
