package entities

import "time"

// Unit is a single translatable source string, identified by a stable key
// within a project.
type Unit struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Key        string    `json:"key"`
	SourceText string    `json:"source_text"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
