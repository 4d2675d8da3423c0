package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/repository"
)

// MappingsHandler serves field mapping suggestion, administration and apply.
type MappingsHandler struct {
	mappings  *mapping.Service
	sources   repository.DataSourceRepository
	extractor *extraction.Service
}

func NewMappingsHandler(
	mappings *mapping.Service,
	sources repository.DataSourceRepository,
	extractor *extraction.Service,
) http.Handler {
	return &MappingsHandler{mappings: mappings, sources: sources, extractor: extractor}
}

func (h *MappingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/suggest"):
		h.handleSuggest(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/apply"):
		h.handleApply(w, r)
	case r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case r.Method == http.MethodPut:
		h.handleUpdateRule(w, r)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r)
	case r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type suggestPayload struct {
	SourceID string   `json:"sourceId"`
	Fields   []string `json:"fields"`
}

// handleSuggest scores fields against the catalog. The caller either names
// the fields directly or provides a source to extract them from.
func (h *MappingsHandler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload suggestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	fields := payload.Fields
	if len(fields) == 0 {
		if strings.TrimSpace(payload.SourceID) == "" {
			http.Error(w, "either fields or sourceId is required", http.StatusBadRequest)
			return
		}
		sourceID, err := uuid.Parse(payload.SourceID)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid sourceId: %v", err), http.StatusBadRequest)
			return
		}
		source, err := h.sources.GetByID(r.Context(), sourceID)
		if err != nil {
			writeError(w, err)
			return
		}
		fields, err = h.extractor.LoadSourceFields(r.Context(), source)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	suggestions, err := h.mappings.Suggest(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type createMappingPayload struct {
	SourceID        string                     `json:"sourceId"`
	SourceFieldName string                     `json:"sourceFieldName"`
	CatalogFieldID  string                     `json:"catalogFieldId"`
	Rule            *domain.TransformationRule `json:"transformationRule"`
}

func (h *MappingsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload createMappingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	sourceID, err := uuid.Parse(strings.TrimSpace(payload.SourceID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid sourceId: %v", err), http.StatusBadRequest)
		return
	}
	catalogFieldID, err := uuid.Parse(strings.TrimSpace(payload.CatalogFieldID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid catalogFieldId: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.SourceFieldName) == "" {
		http.Error(w, "sourceFieldName is required", http.StatusBadRequest)
		return
	}
	created, err := h.mappings.Create(r.Context(), sourceID, payload.SourceFieldName, catalogFieldID, payload.Rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type updateRulePayload struct {
	Rule *domain.TransformationRule `json:"transformationRule"`
}

func (h *MappingsHandler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var payload updateRulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	updated, err := h.mappings.UpdateRule(r.Context(), id, payload.Rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *MappingsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.mappings.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MappingsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("sourceId")
	sourceID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "sourceId query parameter is required", http.StatusBadRequest)
		return
	}
	mappings, err := h.mappings.ListBySource(r.Context(), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappings)
}

type applyPayload struct {
	SourceID string `json:"sourceId"`
}

// handleApply extracts the source and runs its stored mappings, returning the
// mapped records with statistics and validation errors.
func (h *MappingsHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload applyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	sourceID, err := uuid.Parse(strings.TrimSpace(payload.SourceID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid sourceId: %v", err), http.StatusBadRequest)
		return
	}
	source, err := h.sources.GetByID(r.Context(), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	extracted, err := h.extractor.ExtractSource(r.Context(), source)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.mappings.ApplyToRecords(r.Context(), sourceID, extracted.Records)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
