// Package entities contains core domain data structures.
package entities

import "time"

// TranslationSource identifies what kind of writer produced a translation value.
type TranslationSource string

const (
	SourceManual  TranslationSource = "manual"
	SourceMachine TranslationSource = "machine"
	SourceImport  TranslationSource = "import"
	SourceMemory  TranslationSource = "memory"
)

// Automated reports whether the source is a non-human writer (LLM, import,
// translation memory). Used by the keep-manual/keep-automated strategies.
func (s TranslationSource) Automated() bool {
	return s != SourceManual && s != ""
}

// TranslationStatus represents the review state of a translation.
type TranslationStatus string

const (
	StatusPending    TranslationStatus = "pending"
	StatusTranslated TranslationStatus = "translated"
	StatusReviewed   TranslationStatus = "reviewed"
)

// Translation is the current value of a unit in one target locale.
// It participates in optimistic locking: Version starts at 1 and increases by
// exactly 1 on every successful conditional update. Only the version lock may
// write the Version field.
type Translation struct {
	ID        string            `json:"id"`
	UnitID    string            `json:"unit_id"`
	Locale    string            `json:"locale"`
	Text      string            `json:"text"`
	Source    TranslationSource `json:"source"`
	Status    TranslationStatus `json:"status"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
