package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/datacatalog/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/"):
		h.handleDownload(w, r)
	case r.Method == http.MethodPost:
		h.handleQueue(w, r)
	case r.Method == http.MethodGet && hasJobID(r.URL.Path):
		h.handleGetJob(w, r)
	case r.Method == http.MethodGet:
		h.handleListJobs(w, r)
	case r.Method == http.MethodDelete && hasJobID(r.URL.Path):
		h.handleCancel(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type queueExportPayload struct {
	SourceID   string `json:"sourceId"`
	MaxRecords int    `json:"maxRecords"`
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload queueExportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	sourceID, err := uuid.Parse(strings.TrimSpace(payload.SourceID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid sourceId: %v", err), http.StatusBadRequest)
		return
	}
	job, err := h.service.QueueCatalogExport(r.Context(), CatalogExportRequest{
		SourceID:   sourceID,
		MaxRecords: payload.MaxRecords,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := lastPathID(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, fmt.Sprintf("job not found: %v", err), http.StatusNotFound)
		return
	}
	download, err := h.service.BuildDownloadURL(job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Job         any     `json:"job"`
		DownloadURL *string `json:"downloadUrl,omitempty"`
	}{Job: job, DownloadURL: download})
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	jobs, err := h.service.ListJobs(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, err := lastPathID(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.CancelJob(r.Context(), jobID)
	switch {
	case errors.Is(err, repository.ErrExportJobStatusConflict):
		http.Error(w, "export job already finished", http.StatusConflict)
		return
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, err := lastPathID(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, fmt.Sprintf("job not found: %v", err), http.StatusNotFound)
		return
	}
	if err := h.service.ValidateDownloadToken(jobID, r.URL.Query().Get("token")); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	file, err := h.service.OpenJobFile(job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	defer file.Close()

	mime := "application/json"
	if job.FileMimeType != nil && *job.FileMimeType != "" {
		mime = *job.FileMimeType
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(*job.FilePath)))
	if job.FileByteSize != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*job.FileByteSize, 10))
	}
	if _, err := io.Copy(w, file); err != nil {
		// Client likely disconnected mid-download.
		return
	}
}

func hasJobID(path string) bool {
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx == -1 || idx == len(path)-1 {
		return false
	}
	_, err := uuid.Parse(path[idx+1:])
	return err == nil
}

func lastPathID(path string) (uuid.UUID, error) {
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx == -1 || idx == len(path)-1 {
		return uuid.Nil, fmt.Errorf("missing export identifier")
	}
	id, err := uuid.Parse(path[idx+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid export identifier: %v", err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
