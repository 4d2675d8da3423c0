package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/repository"
)

type seedField struct {
	name        string
	displayName string
	dataType    domain.CatalogDataType
	category    string
	tags        []string
	rules       domain.ValidationRules
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// standardFields is the built-in catalog vocabulary. Seeding is idempotent:
// fields that already exist by name are left untouched, including any local
// edits made to them.
var standardFields = []seedField{
	{name: "email_address", displayName: "Email Address", dataType: domain.DataTypeEmail, category: "contact", tags: []string{"pii", "contact"}},
	{name: "phone_number", displayName: "Phone Number", dataType: domain.DataTypeString, category: "contact", tags: []string{"pii", "contact"},
		rules: domain.ValidationRules{Pattern: `^\+?[0-9\s\-().]{7,20}$`}},
	{name: "date_of_birth", displayName: "Date of Birth", dataType: domain.DataTypeDate, category: "personal", tags: []string{"pii", "personal"}},
	{name: "first_name", displayName: "First Name", dataType: domain.DataTypeString, category: "personal", tags: []string{"pii", "personal"},
		rules: domain.ValidationRules{MaxLength: intPtr(100)}},
	{name: "last_name", displayName: "Last Name", dataType: domain.DataTypeString, category: "personal", tags: []string{"pii", "personal"},
		rules: domain.ValidationRules{MaxLength: intPtr(100)}},
	{name: "full_name", displayName: "Full Name", dataType: domain.DataTypeString, category: "personal", tags: []string{"pii", "personal"},
		rules: domain.ValidationRules{MaxLength: intPtr(200)}},
	{name: "street_address", displayName: "Street Address", dataType: domain.DataTypeString, category: "address", tags: []string{"pii", "address"}},
	{name: "city", displayName: "City", dataType: domain.DataTypeString, category: "address", tags: []string{"address"}},
	{name: "postal_code", displayName: "Postal Code", dataType: domain.DataTypeString, category: "address", tags: []string{"address"},
		rules: domain.ValidationRules{MaxLength: intPtr(16)}},
	{name: "country", displayName: "Country", dataType: domain.DataTypeString, category: "address", tags: []string{"address"}},
	{name: "account_id", displayName: "Account ID", dataType: domain.DataTypeString, category: "financial", tags: []string{"identifier", "financial"}},
	{name: "transaction_amount", displayName: "Transaction Amount", dataType: domain.DataTypeCurrency, category: "financial", tags: []string{"financial"},
		rules: domain.ValidationRules{DecimalPlaces: intPtr(2), MinValue: floatPtr(0)}},
	{name: "transaction_date", displayName: "Transaction Date", dataType: domain.DataTypeDatetime, category: "financial", tags: []string{"financial"}},
	{name: "ip_address", displayName: "IP Address", dataType: domain.DataTypeString, category: "technical", tags: []string{"pii", "technical"},
		rules: domain.ValidationRules{Pattern: `^(\d{1,3}\.){3}\d{1,3}$|^[0-9a-fA-F:]+$`}},
	{name: "national_id", displayName: "National ID", dataType: domain.DataTypeString, category: "personal", tags: []string{"pii", "sensitive"}},
}

// SeedStandardFields ensures every built-in field exists.
func (s *Service) SeedStandardFields(ctx context.Context) error {
	created := 0
	for _, seed := range standardFields {
		_, err := s.fields.GetByName(ctx, seed.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check standard field %s: %w", seed.name, err)
		}

		field := domain.NewCatalogField(seed.name, seed.displayName, seed.dataType)
		field.IsStandard = true
		field = field.WithCategory(seed.category).
			WithTags(seed.tags...).
			WithValidationRules(seed.rules)
		if _, err := s.fields.Create(ctx, field); err != nil {
			return fmt.Errorf("seed standard field %s: %w", seed.name, err)
		}
		created++
	}
	if created > 0 {
		log.Printf("[catalog] seeded %d standard fields", created)
	}
	return nil
}
