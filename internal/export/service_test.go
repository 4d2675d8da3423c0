package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/repository"
)

type stubSourceRepo struct {
	sources map[uuid.UUID]domain.DataSource
}

func (s *stubSourceRepo) Create(_ context.Context, source domain.DataSource) (domain.DataSource, error) {
	s.sources[source.ID] = source
	return source, nil
}

func (s *stubSourceRepo) GetByID(_ context.Context, id uuid.UUID) (domain.DataSource, error) {
	source, ok := s.sources[id]
	if !ok {
		return domain.DataSource{}, repository.ErrNotFound
	}
	return source, nil
}

func (s *stubSourceRepo) List(_ context.Context) ([]domain.DataSource, error) {
	var out []domain.DataSource
	for _, source := range s.sources {
		out = append(out, source)
	}
	return out, nil
}

func (s *stubSourceRepo) Update(_ context.Context, source domain.DataSource) (domain.DataSource, error) {
	s.sources[source.ID] = source
	return source, nil
}

func (s *stubSourceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.sources, id)
	return nil
}

type stubExportRepo struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]domain.ExportJob
	completed chan domain.ExportJob
	failed    chan string
}

func newStubExportRepo() *stubExportRepo {
	return &stubExportRepo{
		jobs:      map[uuid.UUID]domain.ExportJob{},
		completed: make(chan domain.ExportJob, 1),
		failed:    make(chan string, 1),
	}
}

func (s *stubExportRepo) Create(_ context.Context, job domain.ExportJob) (domain.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = uuid.New()
	job.Status = domain.ExportJobStatusPending
	job.EnqueuedAt = time.Now().UTC()
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubExportRepo) GetByID(_ context.Context, id uuid.UUID) (domain.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ExportJob{}, repository.ErrNotFound
	}
	return job, nil
}

func (s *stubExportRepo) List(_ context.Context, _ int) ([]domain.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ExportJob
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *stubExportRepo) MarkRunning(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if job.Status != domain.ExportJobStatusPending {
		return repository.ErrExportJobStatusConflict
	}
	job.Status = domain.ExportJobStatusRunning
	s.jobs[id] = job
	return nil
}

func (s *stubExportRepo) MarkCompleted(_ context.Context, job domain.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Status != domain.ExportJobStatusRunning {
		return repository.ErrExportJobStatusConflict
	}
	job.Status = domain.ExportJobStatusCompleted
	s.jobs[job.ID] = job
	s.completed <- job
	return nil
}

func (s *stubExportRepo) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = domain.ExportJobStatusFailed
	job.ErrorMessage = &message
	s.jobs[id] = job
	s.failed <- message
	return nil
}

func (s *stubExportRepo) MarkCancelled(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrExportJobStatusConflict
	}
	if job.Status != domain.ExportJobStatusPending && job.Status != domain.ExportJobStatusRunning {
		return repository.ErrExportJobStatusConflict
	}
	job.Status = domain.ExportJobStatusCancelled
	s.jobs[id] = job
	return nil
}

func (s *stubExportRepo) setStatus(id uuid.UUID, status domain.ExportJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.Status = status
	s.jobs[id] = job
}

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
	return field, nil
}

func (s *stubFieldRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type stubMappingRepo struct{}

func (s *stubMappingRepo) Upsert(_ context.Context, m domain.FieldMapping) (domain.FieldMapping, error) {
	return m, nil
}

func (s *stubMappingRepo) GetByID(_ context.Context, _ uuid.UUID) (domain.FieldMapping, error) {
	return domain.FieldMapping{}, repository.ErrNotFound
}

func (s *stubMappingRepo) ListBySource(_ context.Context, _ uuid.UUID) ([]domain.FieldMapping, error) {
	return nil, nil
}

func (s *stubMappingRepo) CountByCatalogField(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubMappingRepo) Update(_ context.Context, m domain.FieldMapping) (domain.FieldMapping, error) {
	return m, nil
}

func (s *stubMappingRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func newExportFixture(t *testing.T, opts ...Option) (*Service, *stubSourceRepo, *stubExportRepo, domain.DataSource) {
	t.Helper()

	sources := &stubSourceRepo{sources: map[uuid.UUID]domain.DataSource{}}
	exportRepo := newStubExportRepo()
	fields := &stubFieldRepo{}
	mappings := &stubMappingRepo{}
	catalogs := catalog.NewService(fields, mappings, extraction.NewService(), mapping.NewService(mappings, fields))

	source := domain.DataSource{
		ID:   uuid.New(),
		Name: "Customer Orders",
		Type: domain.SourceTypeFilesystem,
		Configuration: domain.SourceConfiguration{
			Files: []domain.FileRef{
				{Name: "orders.csv", ContentType: "text/csv", Content: []byte("order_id,total\n1,10.50\n2,21.00\n")},
			},
		},
	}
	sources.sources[source.ID] = source

	base := []Option{WithExportDirectory(t.TempDir()), WithSigningSecret("test-secret")}
	service := NewService(sources, exportRepo, catalogs, append(base, opts...)...)
	return service, sources, exportRepo, source
}

func TestQueueCatalogExportCompletes(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t)

	job, err := service.QueueCatalogExport(context.Background(), CatalogExportRequest{SourceID: source.ID})
	if err != nil {
		t.Fatalf("queue returned error: %v", err)
	}
	if job.Status != domain.ExportJobStatusPending {
		t.Fatalf("expected pending job, got %s", job.Status)
	}

	var completed domain.ExportJob
	select {
	case completed = <-exportRepo.completed:
	case msg := <-exportRepo.failed:
		t.Fatalf("job failed: %s", msg)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for export")
	}

	if completed.RowsExported != 2 {
		t.Fatalf("expected 2 exported rows, got %d", completed.RowsExported)
	}
	if completed.BytesWritten == 0 {
		t.Fatalf("expected non-zero bytes written")
	}
	if completed.FilePath == nil {
		t.Fatalf("expected a file path")
	}
	if completed.FileMimeType == nil || *completed.FileMimeType != "application/json" {
		t.Fatalf("unexpected mime type: %v", completed.FileMimeType)
	}

	raw, err := os.ReadFile(*completed.FilePath)
	if err != nil {
		t.Fatalf("read export file: %v", err)
	}
	var written domain.UnifiedDataCatalog
	if err := json.Unmarshal(raw, &written); err != nil {
		t.Fatalf("decode export file: %v", err)
	}
	if written.TotalRecords != 2 || written.SourceID != source.ID {
		t.Fatalf("unexpected exported catalog: total=%d source=%s", written.TotalRecords, written.SourceID)
	}
}

func TestQueueCatalogExportUnknownSource(t *testing.T) {
	service, _, _, _ := newExportFixture(t)

	_, err := service.QueueCatalogExport(context.Background(), CatalogExportRequest{SourceID: uuid.New()})
	if err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestExportJobTimeoutMarksFailed(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t, WithJobTimeout(time.Nanosecond))

	if _, err := service.QueueCatalogExport(context.Background(), CatalogExportRequest{SourceID: source.ID}); err != nil {
		t.Fatalf("queue returned error: %v", err)
	}

	select {
	case <-exportRepo.failed:
	case <-exportRepo.completed:
		t.Fatalf("expected job to fail on timeout")
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for failure")
	}
}

func TestBuildDownloadURLRoundTrip(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t)

	if _, err := service.QueueCatalogExport(context.Background(), CatalogExportRequest{SourceID: source.ID}); err != nil {
		t.Fatalf("queue returned error: %v", err)
	}
	var completed domain.ExportJob
	select {
	case completed = <-exportRepo.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for export")
	}

	download, err := service.BuildDownloadURL(completed)
	if err != nil {
		t.Fatalf("build download URL: %v", err)
	}
	if download == nil {
		t.Fatalf("expected a download URL for completed job")
	}
	parsed, err := url.Parse(*download)
	if err != nil {
		t.Fatalf("parse download URL: %v", err)
	}
	if !strings.HasPrefix(parsed.Path, fmt.Sprintf("/exports/files/%s", completed.ID)) {
		t.Fatalf("unexpected download path: %s", parsed.Path)
	}

	token := parsed.Query().Get("token")
	if err := service.ValidateDownloadToken(completed.ID, token); err != nil {
		t.Fatalf("token must validate: %v", err)
	}
	if err := service.ValidateDownloadToken(uuid.New(), token); err == nil {
		t.Fatalf("token must be bound to its job")
	}
}

func TestBuildDownloadURLPendingJob(t *testing.T) {
	service, _, _, _ := newExportFixture(t)

	download, err := service.BuildDownloadURL(domain.ExportJob{ID: uuid.New(), Status: domain.ExportJobStatusPending})
	if err != nil || download != nil {
		t.Fatalf("pending job must have no download URL, got %v err=%v", download, err)
	}
}

func TestDownloadSignerExpiry(t *testing.T) {
	signer := newDownloadSignerWithSecret("secret", time.Minute)
	jobID := uuid.New()
	now := time.Now()

	token := signer.Sign(jobID, now)
	if err := signer.Verify(jobID, token, now); err != nil {
		t.Fatalf("fresh token must verify: %v", err)
	}
	if err := signer.Verify(jobID, token, now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestDownloadSignerRejectsForgedToken(t *testing.T) {
	jobID := uuid.New()
	now := time.Now()

	token := newDownloadSignerWithSecret("secret", time.Minute).Sign(jobID, now)
	other := newDownloadSignerWithSecret("different", time.Minute)
	if err := other.Verify(jobID, token, now); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
	if err := other.Verify(jobID, "not-base64!!", now); err == nil {
		t.Fatalf("malformed token must be rejected")
	}
}

func TestCancelJobPending(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t)

	created, err := exportRepo.Create(context.Background(), domain.ExportJob{
		SourceID:   source.ID,
		SourceName: source.Name,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	cancelled, err := service.CancelJob(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("cancel returned error: %v", err)
	}
	if cancelled.Status != domain.ExportJobStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
}

func TestCancelJobFinishedConflict(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t)

	created, err := exportRepo.Create(context.Background(), domain.ExportJob{
		SourceID:   source.ID,
		SourceName: source.Name,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	exportRepo.setStatus(created.ID, domain.ExportJobStatusCompleted)

	if _, err := service.CancelJob(context.Background(), created.ID); !errors.Is(err, repository.ErrExportJobStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}
}

func TestCancelJobUnknownID(t *testing.T) {
	service, _, _, _ := newExportFixture(t)

	if _, err := service.CancelJob(context.Background(), uuid.New()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandlerCancelExportJob(t *testing.T) {
	service, _, exportRepo, source := newExportFixture(t)
	handler := NewHTTPHandler(service)

	created, err := exportRepo.Create(context.Background(), domain.ExportJob{
		SourceID:   source.ID,
		SourceName: source.Name,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/exports/"+created.ID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cancelled domain.ExportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cancelled.Status != domain.ExportJobStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	// A second cancel hits a finished job and must conflict.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/exports/"+created.ID.String(), nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Customer Orders": "customer-orders",
		"data_2024":       "data-2024",
		"###":             "export",
		"  spaced  ":      "spaced",
	}
	for input, want := range cases {
		if got := sanitizeFileName(input); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncateError(t *testing.T) {
	long := errors.New(strings.Repeat("x", 600))
	if got := truncateError(long); len(got) != 512 {
		t.Fatalf("expected 512 chars, got %d", len(got))
	}
	if got := truncateError(errors.New("short")); got != "short" {
		t.Fatalf("unexpected message: %s", got)
	}
}
