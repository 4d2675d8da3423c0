package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/repository"
)

type stubFieldRepo struct {
	fields []domain.CatalogField
}

func (s *stubFieldRepo) Create(_ context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	s.fields = append(s.fields, field)
	return field, nil
}

func (s *stubFieldRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CatalogField, error) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, nil
		}
	}
	return domain.CatalogField{}, repository.ErrNotFound
}

func (s *stubFieldRepo) GetByName(_ context.Context, name string) (domain.CatalogField, error) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, nil
		}
	}
	return domain.CatalogField{}, repository.ErrNotFound
}

func (s *stubFieldRepo) List(_ context.Context) ([]domain.CatalogField, error) {
	return append([]domain.CatalogField(nil), s.fields...), nil
}

func (s *stubFieldRepo) Update(_ context.Context, field domain.CatalogField) (domain.CatalogField, error) {
	for i, f := range s.fields {
		if f.ID == field.ID {
			s.fields[i] = field
			return field, nil
		}
	}
	return domain.CatalogField{}, repository.ErrNotFound
}

func (s *stubFieldRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, f := range s.fields {
		if f.ID == id {
			s.fields = append(s.fields[:i], s.fields[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type stubMappingRepo struct {
	mappings []domain.FieldMapping
}

func (s *stubMappingRepo) Upsert(_ context.Context, m domain.FieldMapping) (domain.FieldMapping, error) {
	for i, existing := range s.mappings {
		if existing.SourceID == m.SourceID && existing.SourceFieldName == m.SourceFieldName {
			s.mappings[i] = m
			return m, nil
		}
	}
	s.mappings = append(s.mappings, m)
	return m, nil
}

func (s *stubMappingRepo) GetByID(_ context.Context, id uuid.UUID) (domain.FieldMapping, error) {
	for _, m := range s.mappings {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.FieldMapping{}, repository.ErrNotFound
}

func (s *stubMappingRepo) ListBySource(_ context.Context, sourceID uuid.UUID) ([]domain.FieldMapping, error) {
	var out []domain.FieldMapping
	for _, m := range s.mappings {
		if m.SourceID == sourceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMappingRepo) CountByCatalogField(_ context.Context, catalogFieldID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range s.mappings {
		if m.CatalogFieldID == catalogFieldID {
			count++
		}
	}
	return count, nil
}

func (s *stubMappingRepo) Update(_ context.Context, m domain.FieldMapping) (domain.FieldMapping, error) {
	for i, existing := range s.mappings {
		if existing.ID == m.ID {
			s.mappings[i] = m
			return m, nil
		}
	}
	return domain.FieldMapping{}, repository.ErrNotFound
}

func (s *stubMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, m := range s.mappings {
		if m.ID == id {
			s.mappings = append(s.mappings[:i], s.mappings[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func newTestService() (*Service, *stubFieldRepo, *stubMappingRepo) {
	fields := &stubFieldRepo{}
	mappings := &stubMappingRepo{}
	extractor := extraction.NewService()
	transforms := mapping.NewService(mappings, fields)
	return NewService(fields, mappings, extractor, transforms), fields, mappings
}

func TestCreateFieldNormalizesAndRejectsDuplicates(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateField(ctx, domain.NewCatalogField("Email Address", "Email Address", domain.DataTypeEmail))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if created.Name != "email_address" {
		t.Fatalf("expected normalized name, got %s", created.Name)
	}

	_, err = service.CreateField(ctx, domain.NewCatalogField("email_address", "Other", domain.DataTypeString))
	if !errors.Is(err, ErrFieldNameTaken) {
		t.Fatalf("expected ErrFieldNameTaken, got %v", err)
	}
}

func TestCreateFieldUnknownDataType(t *testing.T) {
	service, _, _ := newTestService()

	field := domain.NewCatalogField("mystery", "Mystery", domain.CatalogDataType("blob"))
	if _, err := service.CreateField(context.Background(), field); !errors.Is(err, ErrUnknownDataType) {
		t.Fatalf("expected ErrUnknownDataType, got %v", err)
	}
}

func TestCreateFieldMissingRelatedField(t *testing.T) {
	service, _, _ := newTestService()

	field := domain.NewCatalogField("street_address", "Street Address", domain.DataTypeString).
		WithRelatedFields(uuid.New())
	if _, err := service.CreateField(context.Background(), field); err == nil {
		t.Fatalf("expected error for unknown related field")
	}
}

func TestUpdateFieldRejectsRelatedCycle(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	a, err := service.CreateField(ctx, domain.NewCatalogField("street_address", "Street Address", domain.DataTypeString))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := service.CreateField(ctx, domain.NewCatalogField("postal_code", "Postal Code", domain.DataTypeString).
		WithRelatedFields(a.ID))
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	_, err = service.UpdateField(ctx, a.WithRelatedFields(b.ID))
	if !errors.Is(err, ErrRelatedFieldCycle) {
		t.Fatalf("expected ErrRelatedFieldCycle, got %v", err)
	}
}

func TestUpdateFieldKeepsNameAndStandardFlag(t *testing.T) {
	service, fields, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateField(ctx, domain.NewCatalogField("country", "Country", domain.DataTypeString))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	changed := created
	changed.Name = "nation"
	changed.IsStandard = true
	changed.DisplayName = "Nation"

	updated, err := service.UpdateField(ctx, changed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "country" || updated.IsStandard {
		t.Fatalf("name and standard flag must be immutable, got %+v", updated)
	}
	if updated.DisplayName != "Nation" {
		t.Fatalf("display name should have changed, got %s", updated.DisplayName)
	}
	if stored, _ := fields.GetByID(ctx, created.ID); stored.Name != "country" {
		t.Fatalf("stored name changed: %s", stored.Name)
	}
}

func TestDeleteStandardFieldRequiresConfirmation(t *testing.T) {
	service, fields, _ := newTestService()
	ctx := context.Background()

	field := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	field.IsStandard = true
	fields.fields = append(fields.fields, field)

	if err := service.DeleteField(ctx, field.ID, false); !errors.Is(err, ErrStandardFieldConfirm) {
		t.Fatalf("expected ErrStandardFieldConfirm, got %v", err)
	}
	if err := service.DeleteField(ctx, field.ID, true); err != nil {
		t.Fatalf("confirmed delete returned error: %v", err)
	}
	if len(fields.fields) != 0 {
		t.Fatalf("field was not deleted")
	}
}

func TestDeleteFieldInUse(t *testing.T) {
	service, fields, mappings := newTestService()
	ctx := context.Background()

	field := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	fields.fields = append(fields.fields, field)
	mappings.mappings = append(mappings.mappings, domain.NewFieldMapping(uuid.New(), "contact", field.ID))

	if err := service.DeleteField(ctx, field.ID, false); !errors.Is(err, ErrFieldInUse) {
		t.Fatalf("expected ErrFieldInUse, got %v", err)
	}
}

func TestSeedStandardFieldsIsIdempotent(t *testing.T) {
	service, fields, _ := newTestService()
	ctx := context.Background()

	if err := service.SeedStandardFields(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	seeded := len(fields.fields)
	if seeded == 0 {
		t.Fatalf("expected standard fields to be seeded")
	}
	for _, f := range fields.fields {
		if !f.IsStandard {
			t.Fatalf("seeded field %s must be standard", f.Name)
		}
	}

	if err := service.SeedStandardFields(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(fields.fields) != seeded {
		t.Fatalf("second seed changed field count: %d -> %d", seeded, len(fields.fields))
	}
}

func TestTransformDataSourceWithoutMappings(t *testing.T) {
	service, _, _ := newTestService()

	source := domain.DataSource{
		ID:   uuid.New(),
		Name: "customers",
		Type: domain.SourceTypeFilesystem,
		Configuration: domain.SourceConfiguration{
			Files: []domain.FileRef{
				{Name: "customers.csv", ContentType: "text/csv", Content: []byte("customer_email\na@example.com\n")},
			},
		},
	}

	result, err := service.TransformDataSource(context.Background(), source, TransformOptions{})
	if err != nil {
		t.Fatalf("transform returned error: %v", err)
	}
	if result.Catalog.TotalRecords != 1 {
		t.Fatalf("expected 1 record, got %d", result.Catalog.TotalRecords)
	}
	if result.Mapping != nil {
		t.Fatalf("no stored mappings, mapping result must be nil")
	}
	if result.Catalog.Records[0].Data["customer_email"] != "a@example.com" {
		t.Fatalf("unexpected record data: %v", result.Catalog.Records[0].Data)
	}
}

func TestTransformDataSourceAppliesStoredMappings(t *testing.T) {
	service, fields, mappings := newTestService()
	ctx := context.Background()

	email := domain.NewCatalogField("email_address", "Email Address", domain.DataTypeEmail)
	fields.fields = append(fields.fields, email)

	source := domain.DataSource{
		ID:   uuid.New(),
		Name: "customers",
		Type: domain.SourceTypeFilesystem,
		Configuration: domain.SourceConfiguration{
			Files: []domain.FileRef{
				{Name: "customers.csv", ContentType: "text/csv", Content: []byte("customer_email\na@example.com\n")},
			},
		},
	}
	mappings.mappings = append(mappings.mappings, domain.NewFieldMapping(source.ID, "customer_email", email.ID))

	result, err := service.TransformDataSource(ctx, source, TransformOptions{})
	if err != nil {
		t.Fatalf("transform returned error: %v", err)
	}
	if result.Mapping == nil {
		t.Fatalf("expected mapping result")
	}
	record := result.Catalog.Records[0]
	if record.Data["email_address"] != "a@example.com" {
		t.Fatalf("expected mapped record, got %v", record.Data)
	}
	if record.SourceData["customer_email"] != "a@example.com" {
		t.Fatalf("expected original preserved, got %v", record.SourceData)
	}
	if _, ok := result.Catalog.Schema.FieldByName("email_address"); !ok {
		t.Fatalf("schema must reflect mapped field names")
	}
}
