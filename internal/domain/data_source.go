package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceType represents the kind of data source being transformed
type SourceType string

const (
	SourceTypeFilesystem      SourceType = "filesystem"
	SourceTypeJSONTransformed SourceType = "json_transformed"
	SourceTypeDatabase        SourceType = "database"
	SourceTypeAPI             SourceType = "api"
)

// FileRef describes one file attached to a data source. Content is held in
// memory; callers enforce a size ceiling before handing files to extraction.
type FileRef struct {
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Size        int64  `json:"size"`
	Content     []byte `json:"content,omitempty"`
}

// SourceConfiguration carries the per-source payload: attached files for
// filesystem sources, already-materialized rows for database/api sources.
type SourceConfiguration struct {
	Files      []FileRef        `json:"files,omitempty"`
	Data       []map[string]any `json:"data,omitempty"`
	Relational bool             `json:"relational,omitempty"`
}

// DataSource is the descriptor the transformation core consumes.
type DataSource struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Type          SourceType          `json:"type"`
	Configuration SourceConfiguration `json:"configuration"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewDataSource creates a new data source descriptor
func NewDataSource(name string, sourceType SourceType, configuration SourceConfiguration) DataSource {
	now := time.Now()
	return DataSource{
		ID:            uuid.New(),
		Name:          name,
		Type:          sourceType,
		Configuration: configuration,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// GetConfigurationAsJSONB returns the configuration as JSONB for database storage
func (s DataSource) GetConfigurationAsJSONB() (json.RawMessage, error) {
	return json.Marshal(s.Configuration)
}

// ConfigurationFromJSONB hydrates a stored source configuration.
func ConfigurationFromJSONB(data json.RawMessage) (SourceConfiguration, error) {
	var configuration SourceConfiguration
	if len(data) == 0 {
		return configuration, nil
	}
	err := json.Unmarshal(data, &configuration)
	return configuration, err
}

// MetadataToJSONB marshals source metadata for persistence.
func (s DataSource) MetadataToJSONB() (json.RawMessage, error) {
	if s.Metadata == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(s.Metadata)
}
