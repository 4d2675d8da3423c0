package mapping

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
)

func sourceRecords(sourceID uuid.UUID, data ...map[string]any) []domain.SourceRecord {
	records := make([]domain.SourceRecord, len(data))
	for i, d := range data {
		records[i] = domain.NewSourceRecord(sourceID, i, d, domain.RecordMetadata{OriginalFormat: "csv"})
	}
	return records
}

func TestApplyDirectMappingRenamesField(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	m := domain.NewFieldMapping(sourceID, "customer_email", email.ID)

	records := sourceRecords(sourceID,
		map[string]any{"customer_email": "a@example.com", "notes": "keep me"},
	)

	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}

	out := result.Records[0]
	if out.Data["email_address"] != "a@example.com" {
		t.Fatalf("expected mapped email, got %v", out.Data)
	}
	if _, ok := out.Data["customer_email"]; ok {
		t.Fatalf("mapped source key should not remain, got %v", out.Data)
	}
	if out.Data["notes"] != "keep me" {
		t.Fatalf("unmapped field must pass through, got %v", out.Data)
	}
	if out.SourceData["customer_email"] != "a@example.com" {
		t.Fatalf("original data must be preserved as sourceData, got %v", out.SourceData)
	}

	stats := result.Statistics
	if stats.MappedFieldCount != 1 || stats.TotalFieldCount != 2 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if !reflect.DeepEqual(stats.UnmappedFields, []string{"notes"}) {
		t.Fatalf("expected notes unmapped, got %v", stats.UnmappedFields)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	m := domain.NewFieldMapping(sourceID, "customer_email", email.ID)

	records := sourceRecords(sourceID, map[string]any{"customer_email": "a@example.com"})

	tr := NewTransformer()
	once := tr.Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	twice := tr.Apply(once.Records, []domain.FieldMapping{m}, []domain.CatalogField{email})

	if !reflect.DeepEqual(once.Records[0].Data, twice.Records[0].Data) {
		t.Fatalf("second apply changed data: %v vs %v", once.Records[0].Data, twice.Records[0].Data)
	}
}

func TestApplyFormatRule(t *testing.T) {
	sourceID := uuid.New()
	phone := domain.NewCatalogField("phone_number", "Phone Number", domain.DataTypeString)
	m := domain.NewFieldMapping(sourceID, "phone", phone.ID).WithRule(&domain.TransformationRule{
		Type:        domain.RuleTypeFormat,
		Pattern:     `[^0-9]`,
		Replacement: "",
	})

	records := sourceRecords(sourceID,
		map[string]any{"phone": "(555) 010-0199"},
		map[string]any{"phone": float64(5550100)},
	)

	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{phone})
	if result.Records[0].Data["phone_number"] != "5550100199" {
		t.Fatalf("expected digits only, got %v", result.Records[0].Data["phone_number"])
	}
	// Non-string values pass through format rules untouched.
	if result.Records[1].Data["phone_number"] != float64(5550100) {
		t.Fatalf("expected non-string passthrough, got %v", result.Records[1].Data["phone_number"])
	}
}

func TestApplyInvalidPatternDegradesToDirect(t *testing.T) {
	sourceID := uuid.New()
	field := domain.NewCatalogField("city", "City", domain.DataTypeString)
	m := domain.NewFieldMapping(sourceID, "town", field.ID).WithRule(&domain.TransformationRule{
		Type:    domain.RuleTypeFormat,
		Pattern: `([`,
	})

	records := sourceRecords(sourceID, map[string]any{"town": "Paris"})
	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{field})

	if result.Records[0].Data["city"] != "Paris" {
		t.Fatalf("expected direct copy, got %v", result.Records[0].Data)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a degradation warning, got %v", result.Warnings)
	}
}

func TestApplyUnsupportedRuleDegradesToDirect(t *testing.T) {
	sourceID := uuid.New()
	field := domain.NewCatalogField("transaction_amount", "Transaction Amount", domain.DataTypeCurrency)
	m := domain.NewFieldMapping(sourceID, "amount", field.ID).WithRule(&domain.TransformationRule{
		Type:       domain.RuleTypeCalculation,
		Expression: "amount * 100",
	})

	records := sourceRecords(sourceID, map[string]any{"amount": float64(12.5)})
	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{field})

	if result.Records[0].Data["transaction_amount"] != float64(12.5) {
		t.Fatalf("expected direct copy, got %v", result.Records[0].Data)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a degradation warning, got %v", result.Warnings)
	}
}

func TestApplyCollectsValidationErrors(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	m := domain.NewFieldMapping(sourceID, "contact", email.ID)

	records := sourceRecords(sourceID,
		map[string]any{"contact": "not-an-email"},
		map[string]any{"contact": "ok@example.com"},
	)

	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	if result.Statistics.InvalidRecords != 1 {
		t.Fatalf("expected 1 invalid record, got %d", result.Statistics.InvalidRecords)
	}
	if len(result.Errors) != 1 || result.Errors[0].RecordIndex != 0 {
		t.Fatalf("expected error for record 0, got %+v", result.Errors)
	}
	// Invalid values are kept, not dropped.
	if result.Records[0].Data["email_address"] != "not-an-email" {
		t.Fatalf("invalid value must still be mapped, got %v", result.Records[0].Data)
	}
}

func TestApplyValidatesAbsentRequiredField(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail).WithRequired(true)
	m := domain.NewFieldMapping(sourceID, "contact", email.ID)

	records := sourceRecords(sourceID,
		map[string]any{"name": "no contact column at all"},
		map[string]any{"contact": nil},
	)

	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	if result.Statistics.InvalidRecords != 2 {
		t.Fatalf("absent and null values must both fail the required check, got %d invalid", result.Statistics.InvalidRecords)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected errors for both records, got %+v", result.Errors)
	}
	if result.Errors[0].RecordIndex != 0 || result.Errors[1].RecordIndex != 1 {
		t.Fatalf("unexpected record indexes: %+v", result.Errors)
	}
}

func TestApplyAbsentOptionalFieldIsValid(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	m := domain.NewFieldMapping(sourceID, "contact", email.ID)

	records := sourceRecords(sourceID, map[string]any{"name": "nothing to map"})
	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	if result.Statistics.InvalidRecords != 0 || len(result.Errors) != 0 {
		t.Fatalf("absent optional field must not fail validation, got %+v", result.Errors)
	}
}

func TestApplyWarnsOnFieldNameCollision(t *testing.T) {
	sourceID := uuid.New()
	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	m := domain.NewFieldMapping(sourceID, "email", email.ID)

	records := sourceRecords(sourceID, map[string]any{
		"email":         "mapped@example.com",
		"email_address": "literal@example.com",
	})

	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, []domain.CatalogField{email})
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a collision warning, got %v", result.Warnings)
	}
	// Keys apply in sorted order, so the literal column lands last.
	if result.Records[0].Data["email_address"] != "literal@example.com" {
		t.Fatalf("unexpected surviving value: %v", result.Records[0].Data)
	}
}

func TestApplyUnknownCatalogFieldSkipsMapping(t *testing.T) {
	sourceID := uuid.New()
	m := domain.NewFieldMapping(sourceID, "contact", uuid.New())

	records := sourceRecords(sourceID, map[string]any{"contact": "a@example.com"})
	result := NewTransformer().Apply(records, []domain.FieldMapping{m}, nil)

	if result.Records[0].Data["contact"] != "a@example.com" {
		t.Fatalf("expected field preserved when mapping is skipped, got %v", result.Records[0].Data)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a warning for unknown catalog field, got %v", result.Warnings)
	}
}
