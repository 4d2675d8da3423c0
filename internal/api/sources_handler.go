package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/repository"
)

// SourcesHandler serves data source registration and transformation.
type SourcesHandler struct {
	sources   repository.DataSourceRepository
	logs      repository.TransformLogRepository
	extractor *extraction.Service
	catalogs  *catalog.Service
}

func NewSourcesHandler(
	sources repository.DataSourceRepository,
	logs repository.TransformLogRepository,
	extractor *extraction.Service,
	catalogs *catalog.Service,
) http.Handler {
	return &SourcesHandler{sources: sources, logs: logs, extractor: extractor, catalogs: catalogs}
}

func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transform"):
		h.handleTransform(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/fields"):
		h.handleFields(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/logs"):
		h.handleLogs(w, r)
	case r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case r.Method == http.MethodGet && pathHasID(r.URL.Path):
		h.handleGet(w, r)
	case r.Method == http.MethodGet:
		h.handleList(w, r)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type createSourcePayload struct {
	Name          string                     `json:"name"`
	Type          string                     `json:"type"`
	Configuration domain.SourceConfiguration `json:"configuration"`
	Metadata      map[string]any             `json:"metadata"`
}

func (h *SourcesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload createSourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	sourceType := domain.SourceType(payload.Type)
	switch sourceType {
	case domain.SourceTypeFilesystem, domain.SourceTypeJSONTransformed,
		domain.SourceTypeDatabase, domain.SourceTypeAPI:
	default:
		http.Error(w, fmt.Sprintf("unknown source type %q", payload.Type), http.StatusBadRequest)
		return
	}

	source := domain.NewDataSource(payload.Name, sourceType, payload.Configuration)
	source.Metadata = payload.Metadata
	created, err := h.sources.Create(r.Context(), source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SourcesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	source, ok := h.loadSource(w, r, "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (h *SourcesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *SourcesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.sources.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	// Transform logs have no FK to data_sources; purge them with the source.
	if err := h.logs.DeleteBySource(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SourcesHandler) handleTransform(w http.ResponseWriter, r *http.Request) {
	source, ok := h.loadSource(w, r, "/transform")
	if !ok {
		return
	}
	maxRecords := 0
	if raw := r.URL.Query().Get("maxRecords"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid maxRecords", http.StatusBadRequest)
			return
		}
		maxRecords = parsed
	}
	result, err := h.catalogs.TransformDataSource(r.Context(), source, catalog.TransformOptions{MaxRecords: maxRecords})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SourcesHandler) handleFields(w http.ResponseWriter, r *http.Request) {
	source, ok := h.loadSource(w, r, "/fields")
	if !ok {
		return
	}
	fields, err := h.extractor.LoadSourceFields(r.Context(), source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SourceID uuid.UUID `json:"sourceId"`
		Fields   []string  `json:"fields"`
	}{SourceID: source.ID, Fields: fields})
}

func (h *SourcesHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	source, ok := h.loadSource(w, r, "/logs")
	if !ok {
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	entries, err := h.logs.ListBySource(r.Context(), source.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *SourcesHandler) loadSource(w http.ResponseWriter, r *http.Request, suffix string) (domain.DataSource, bool) {
	id, err := pathID(r.URL.Path, suffix)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return domain.DataSource{}, false
	}
	source, err := h.sources.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return domain.DataSource{}, false
	}
	return source, true
}

// pathID extracts the UUID segment preceding the optional suffix.
func pathID(path, suffix string) (uuid.UUID, error) {
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), suffix)
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx == -1 || idx == len(path)-1 {
		return uuid.Nil, fmt.Errorf("missing identifier")
	}
	id, err := uuid.Parse(path[idx+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid identifier: %v", err)
	}
	return id, nil
}

func pathHasID(path string) bool {
	_, err := pathID(path, "")
	return err == nil
}
