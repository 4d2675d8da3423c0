package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
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
	if _, ok := s.sources[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.sources, id)
	return nil
}

type stubLogRepo struct {
	entries map[uuid.UUID][]domain.TransformLogEntry
}

func (s *stubLogRepo) Insert(_ context.Context, entry domain.TransformLogEntry) error {
	s.entries[entry.SourceID] = append(s.entries[entry.SourceID], entry)
	return nil
}

func (s *stubLogRepo) ListBySource(_ context.Context, sourceID uuid.UUID, limit int) ([]domain.TransformLogEntry, error) {
	entries := s.entries[sourceID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *stubLogRepo) DeleteBySource(_ context.Context, sourceID uuid.UUID) error {
	delete(s.entries, sourceID)
	return nil
}

func TestDeleteSourcePurgesTransformLogs(t *testing.T) {
	sources := &stubSourceRepo{sources: map[uuid.UUID]domain.DataSource{}}
	logs := &stubLogRepo{entries: map[uuid.UUID][]domain.TransformLogEntry{}}
	handler := NewSourcesHandler(sources, logs, extraction.NewService(), nil)

	source := domain.DataSource{ID: uuid.New(), Name: "doomed", Type: domain.SourceTypeFilesystem}
	sources.sources[source.ID] = source
	logs.entries[source.ID] = []domain.TransformLogEntry{
		domain.NewTransformLogEntry(source.ID, "bad.csv", nil, "row 3: short row"),
	}

	req := httptest.NewRequest(http.MethodDelete, "/sources/"+source.ID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := sources.sources[source.ID]; ok {
		t.Fatalf("source was not deleted")
	}
	if entries := logs.entries[source.ID]; len(entries) != 0 {
		t.Fatalf("transform logs were orphaned: %v", entries)
	}
}

func TestDeleteSourceUnknownID(t *testing.T) {
	sources := &stubSourceRepo{sources: map[uuid.UUID]domain.DataSource{}}
	logs := &stubLogRepo{entries: map[uuid.UUID][]domain.TransformLogEntry{}}
	handler := NewSourcesHandler(sources, logs, extraction.NewService(), nil)

	req := httptest.NewRequest(http.MethodDelete, "/sources/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
