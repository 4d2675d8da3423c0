package mapping

import (
	"testing"

	"github.com/rpattn/datacatalog/internal/domain"
)

func testCatalog() []domain.CatalogField {
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	phone := domain.NewCatalogField("phone_number", "Phone Number", domain.DataTypeString)
	dob := domain.NewCatalogField("date_of_birth", "Date of Birth", domain.DataTypeDate)
	name := domain.NewCatalogField("full_name", "Full Name", domain.DataTypeString)
	account := domain.NewCatalogField("account_id", "Account ID", domain.DataTypeString).
		WithTags("identifier", "account")
	return []domain.CatalogField{email, phone, dob, name, account}
}

func TestSuggestExactMatchScoresHighest(t *testing.T) {
	fields := testCatalog()
	suggestions := NewSuggester().SuggestField("email_address", fields)
	if len(suggestions) == 0 {
		t.Fatalf("expected suggestions for exact match")
	}
	top := suggestions[0]
	if top.CatalogFieldName != "email_address" || top.Confidence != 1.0 {
		t.Fatalf("expected exact match at 1.0, got %+v", top)
	}
	if top.Reason != "exact field name match" {
		t.Fatalf("unexpected reason: %s", top.Reason)
	}
	for _, s := range suggestions[1:] {
		if s.Confidence >= top.Confidence {
			t.Fatalf("exact match must outrank %+v", s)
		}
	}
}

func TestSuggestNormalizesSourceNames(t *testing.T) {
	suggestions := NewSuggester().SuggestField("Email Address", testCatalog())
	if len(suggestions) == 0 || suggestions[0].Confidence != 1.0 {
		t.Fatalf("expected normalized exact match, got %v", suggestions)
	}
}

func TestSuggestDisplayNameSimilarity(t *testing.T) {
	suggestions := NewSuggester().SuggestField("customer_email", testCatalog())
	if len(suggestions) == 0 {
		t.Fatalf("expected suggestions for customer_email")
	}
	top := suggestions[0]
	if top.CatalogFieldName != "email_address" {
		t.Fatalf("expected email_address, got %s", top.CatalogFieldName)
	}
	if top.Confidence != 0.8 {
		t.Fatalf("expected display name similarity at 0.8, got %v", top.Confidence)
	}
}

func TestSuggestSubstringMatch(t *testing.T) {
	suggestions := NewSuggester().SuggestField("primary_phone_number", testCatalog())
	if len(suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}
	top := suggestions[0]
	if top.CatalogFieldName != "phone_number" || top.Confidence != 0.9 {
		t.Fatalf("expected phone_number at 0.9, got %+v", top)
	}
}

func TestSuggestTagMatch(t *testing.T) {
	suggestions := NewSuggester().SuggestField("identifier", testCatalog())
	found := false
	for _, s := range suggestions {
		if s.CatalogFieldName == "account_id" {
			found = true
			if s.Confidence != 0.7 || s.Reason != "tag match" {
				t.Fatalf("expected tag match at 0.7, got %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("expected account_id via tag match, got %v", suggestions)
	}
}

func TestSuggestCommonPattern(t *testing.T) {
	suggestions := NewSuggester().SuggestField("dob", testCatalog())
	if len(suggestions) == 0 {
		t.Fatalf("expected suggestions for dob")
	}
	top := suggestions[0]
	if top.CatalogFieldName != "date_of_birth" || top.Confidence != 0.6 {
		t.Fatalf("expected date_of_birth via pattern at 0.6, got %+v", top)
	}
	if top.Reason != "common pattern match" {
		t.Fatalf("unexpected reason: %s", top.Reason)
	}
}

func TestSuggestNoMatchBelowCutoff(t *testing.T) {
	suggestions := NewSuggester().SuggestField("favorite_color", testCatalog())
	if len(suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %v", suggestions)
	}
}

func TestSuggestMappingsCoversAllFields(t *testing.T) {
	out := NewSuggester().SuggestMappings([]string{"email_address", "favorite_color"}, testCatalog())
	if len(out) != 2 {
		t.Fatalf("expected entry per source field, got %d", len(out))
	}
	if len(out["favorite_color"]) != 0 {
		t.Fatalf("expected empty suggestions for unmatched field")
	}
}

func TestSuggestTieBreakKeepsCatalogOrder(t *testing.T) {
	first := domain.NewCatalogField("contact_value", "Contact", domain.DataTypeString).WithTags("shared")
	second := domain.NewCatalogField("reserve_value", "Reserve", domain.DataTypeString).WithTags("shared")

	suggestions := NewSuggester().SuggestField("shared", []domain.CatalogField{first, second})
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 tag matches, got %d", len(suggestions))
	}
	if suggestions[0].CatalogFieldName != "contact_value" {
		t.Fatalf("equal confidence must keep catalog order, got %s first", suggestions[0].CatalogFieldName)
	}
}
