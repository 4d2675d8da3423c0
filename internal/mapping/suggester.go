package mapping

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
)

// Suggestion confidence tiers, strongest signal first. Anything at or below
// the cutoff is never suggested.
const (
	confidenceExactName   = 1.0
	confidenceNameSimilar = 0.9
	confidenceDisplayName = 0.8
	confidenceTagMatch    = 0.7
	confidencePattern     = 0.6
	suggestionCutoff      = 0.5
)

// Suggestion proposes mapping one source field onto a catalog field.
type Suggestion struct {
	CatalogFieldID   uuid.UUID `json:"catalog_field_id"`
	CatalogFieldName string    `json:"catalog_field_name"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason"`
}

// Suggester scores source fields against the catalog using a fixed chain of
// name heuristics.
type Suggester struct{}

func NewSuggester() *Suggester {
	return &Suggester{}
}

// SuggestMappings scores every source field against every catalog field.
// Per source field, suggestions are sorted by confidence descending; equal
// confidences keep catalog declaration order so results are deterministic.
func (s *Suggester) SuggestMappings(sourceFields []string, catalogFields []domain.CatalogField) map[string][]Suggestion {
	out := make(map[string][]Suggestion, len(sourceFields))
	for _, field := range sourceFields {
		out[field] = s.SuggestField(field, catalogFields)
	}
	return out
}

// SuggestField scores one source field against the catalog.
func (s *Suggester) SuggestField(sourceField string, catalogFields []domain.CatalogField) []Suggestion {
	var suggestions []Suggestion
	for _, cf := range catalogFields {
		confidence, reason := scoreField(sourceField, cf)
		if confidence <= suggestionCutoff {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			CatalogFieldID:   cf.ID,
			CatalogFieldName: cf.Name,
			Confidence:       confidence,
			Reason:           reason,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

// scoreField walks the heuristic chain and returns the strongest match.
func scoreField(sourceField string, cf domain.CatalogField) (float64, string) {
	source := domain.NormalizeFieldName(sourceField)
	if source == "" {
		return 0, ""
	}

	if source == cf.Name {
		return confidenceExactName, "exact field name match"
	}
	if nameContains(source, cf.Name) {
		return confidenceNameSimilar, "field name similarity"
	}
	if displayNameMatches(source, cf.DisplayName) {
		return confidenceDisplayName, "display name similarity"
	}
	if tagMatches(source, cf.Tags) {
		return confidenceTagMatch, "tag match"
	}
	if patternMatches(source, cf.Name) {
		return confidencePattern, "common pattern match"
	}
	return 0, ""
}

func nameContains(source, catalogName string) bool {
	if catalogName == "" {
		return false
	}
	return strings.Contains(source, catalogName) || strings.Contains(catalogName, source)
}

// displayNameMatches compares against the human-facing name. Beyond plain
// containment, a significant display-name token appearing in the source
// counts: "customer_email" matches display name "Email Address" through its
// "email" token.
func displayNameMatches(source, displayName string) bool {
	display := domain.NormalizeFieldName(displayName)
	if display == "" {
		return false
	}
	if strings.Contains(source, display) || strings.Contains(display, source) {
		return true
	}
	for _, token := range strings.Split(display, "_") {
		if len(token) >= 4 && strings.Contains(source, token) {
			return true
		}
	}
	return false
}

func tagMatches(source string, tags []string) bool {
	sourceTokens := strings.Split(source, "_")
	for _, tag := range tags {
		tag = domain.NormalizeFieldName(tag)
		if tag == "" {
			continue
		}
		for _, token := range sourceTokens {
			if token == tag {
				return true
			}
		}
	}
	return false
}

// commonPatterns maps catalog field names to source aliases seen in the wild.
var commonPatterns = map[string][]string{
	"email_address": {"email", "e_mail", "mail"},
	"phone_number":  {"phone", "tel", "telephone", "mobile", "cell"},
	"date_of_birth": {"dob", "birth_date", "birthdate", "born"},
	"first_name":    {"fname", "forename", "given_name", "givenname"},
	"last_name":     {"lname", "surname", "family_name", "familyname"},
	"full_name":     {"name", "customer_name", "contact_name"},
	"street_address": {
		"address", "addr", "street", "address_line_1", "address1",
	},
	"postal_code":        {"zip", "zipcode", "zip_code", "postcode"},
	"country":            {"country_code", "nation"},
	"account_id":         {"account", "acct", "account_number", "customer_id"},
	"transaction_amount": {"amount", "total", "price", "value"},
	"transaction_date":   {"date", "timestamp", "created", "created_at"},
	"ip_address":         {"ip", "ipaddr", "client_ip", "remote_addr"},
	"national_id":        {"ssn", "nino", "tax_id", "passport_number"},
}

func patternMatches(source, catalogName string) bool {
	for _, alias := range commonPatterns[catalogName] {
		if source == alias || strings.Contains(source, alias) {
			return true
		}
	}
	return false
}
