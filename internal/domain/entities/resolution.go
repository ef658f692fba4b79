package entities

import "time"

// Resolution is the one-shot outcome of resolving a ConflictRecord.
// At most one resolution is ever persisted per conflict; it is immutable and
// retained for audit and statistics.
type Resolution struct {
	ConflictID      string    `json:"conflict_id"`
	Strategy        Strategy  `json:"strategy"`
	ResolvedValue   string    `json:"resolved_value"`
	ResolvedVersion int64     `json:"resolved_version"`
	ResolvedBy      string    `json:"resolved_by"`
	Automatic       bool      `json:"automatic"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// SystemResolver is the ResolvedBy identity recorded for automatic resolutions.
const SystemResolver = "system"
