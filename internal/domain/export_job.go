package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportJobStatus captures lifecycle state for a catalog export job.
type ExportJobStatus string

const (
	ExportJobStatusPending   ExportJobStatus = "PENDING"
	ExportJobStatusRunning   ExportJobStatus = "RUNNING"
	ExportJobStatusCompleted ExportJobStatus = "COMPLETED"
	ExportJobStatusFailed    ExportJobStatus = "FAILED"
	ExportJobStatusCancelled ExportJobStatus = "CANCELLED"
)

// ExportJob mirrors persisted catalog export metadata for dashboards and workers.
type ExportJob struct {
	ID            uuid.UUID       `json:"id"`
	SourceID      uuid.UUID       `json:"source_id"`
	SourceName    string          `json:"source_name"`
	MaxRecords    int             `json:"max_records"`
	RowsRequested int             `json:"rows_requested"`
	RowsExported  int             `json:"rows_exported"`
	BytesWritten  int64           `json:"bytes_written"`
	FilePath      *string         `json:"file_path,omitempty"`
	FileMimeType  *string         `json:"file_mime_type,omitempty"`
	FileByteSize  *int64          `json:"file_byte_size,omitempty"`
	Status        ExportJobStatus `json:"status"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransformLogEntry captures file/row level issues recorded while extracting
// or transforming a source.
type TransformLogEntry struct {
	ID           uuid.UUID `json:"id"`
	SourceID     uuid.UUID `json:"source_id"`
	FileName     string    `json:"file_name,omitempty"`
	RecordIndex  *int      `json:"record_index,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTransformLogEntry creates a log entry for a file/row level failure.
func NewTransformLogEntry(sourceID uuid.UUID, fileName string, recordIndex *int, message string) TransformLogEntry {
	return TransformLogEntry{
		ID:           uuid.New(),
		SourceID:     sourceID,
		FileName:     fileName,
		RecordIndex:  recordIndex,
		ErrorMessage: message,
		CreatedAt:    time.Now().UTC(),
	}
}
