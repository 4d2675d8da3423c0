package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/domain"
	"github.com/rpattn/datacatalog/pkg/validator"
)

// CatalogHandler serves catalog field administration and value validation.
type CatalogHandler struct {
	catalogs *catalog.Service
}

func NewCatalogHandler(catalogs *catalog.Service) http.Handler {
	return &CatalogHandler{catalogs: catalogs}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/validate"):
		h.handleValidate(w, r)
	case r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case r.Method == http.MethodPut:
		h.handleUpdate(w, r)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r)
	case r.Method == http.MethodGet && pathHasID(r.URL.Path):
		h.handleGet(w, r)
	case r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type catalogFieldPayload struct {
	Name            string                 `json:"name"`
	DisplayName     string                 `json:"displayName"`
	DataType        string                 `json:"dataType"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"`
	IsRequired      bool                   `json:"isRequired"`
	ValidationRules domain.ValidationRules `json:"validationRules"`
	Tags            []string               `json:"tags"`
	RelatedFieldIDs []string               `json:"relatedFieldIds"`
}

func (p catalogFieldPayload) toDomain() (domain.CatalogField, error) {
	related := make([]uuid.UUID, 0, len(p.RelatedFieldIDs))
	for _, raw := range p.RelatedFieldIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return domain.CatalogField{}, fmt.Errorf("invalid related field id %q: %v", raw, err)
		}
		related = append(related, id)
	}
	return domain.CatalogField{
		Name:            p.Name,
		DisplayName:     p.DisplayName,
		DataType:        domain.CatalogDataType(p.DataType),
		Description:     p.Description,
		Category:        p.Category,
		IsRequired:      p.IsRequired,
		ValidationRules: p.ValidationRules,
		Tags:            p.Tags,
		RelatedFieldIDs: related,
	}, nil
}

func (h *CatalogHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload catalogFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	field, err := payload.toDomain()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.catalogs.CreateField(r.Context(), field)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var payload catalogFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	field, err := payload.toDomain()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	field.ID = id
	updated, err := h.catalogs.UpdateField(r.Context(), field)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.catalogs.DeleteField(r.Context(), id, confirm); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	field, err := h.catalogs.GetField(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (h *CatalogHandler) handleList(w http.ResponseWriter, r *http.Request) {
	fields, err := h.catalogs.ListFields(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

type validatePayload struct {
	Value   any    `json:"value"`
	FieldID string `json:"fieldId"`
}

// handleValidate runs one value through a catalog field's declared rules.
func (h *CatalogHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload validatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	fieldID, err := uuid.Parse(strings.TrimSpace(payload.FieldID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fieldId: %v", err), http.StatusBadRequest)
		return
	}
	field, err := h.catalogs.GetField(r.Context(), fieldID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validator.ValidateFieldValue(payload.Value, field))
}
