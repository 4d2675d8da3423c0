package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/repository"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// writeError maps service sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrFieldNameTaken),
		errors.Is(err, catalog.ErrFieldInUse),
		errors.Is(err, catalog.ErrStandardFieldConfirm):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrRelatedFieldCycle),
		errors.Is(err, catalog.ErrUnknownDataType),
		errors.Is(err, mapping.ErrUnknownCatalogField),
		errors.Is(err, mapping.ErrUnknownRuleType):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
