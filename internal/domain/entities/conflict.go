package entities

import "time"

// ConflictType classifies which two kinds of writers collided.
type ConflictType string

const (
	ConflictManualVsAutomated    ConflictType = "manual_vs_automated"
	ConflictManualVsManual       ConflictType = "manual_vs_manual"
	ConflictAutomatedVsAutomated ConflictType = "automated_vs_automated"
	ConflictVersionMismatch      ConflictType = "version_mismatch"
	ConflictLockTimeout          ConflictType = "lock_timeout"
)

// Valid reports whether t is a known conflict type.
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictManualVsAutomated, ConflictManualVsManual,
		ConflictAutomatedVsAutomated, ConflictVersionMismatch, ConflictLockTimeout:
		return true
	}
	return false
}

// Strategy is a way of resolving a conflict. Which strategies are legal
// depends on the conflict type; manual_review is always legal but can only be
// carried out by a human choosing another strategy.
type Strategy string

const (
	StrategyKeepManual    Strategy = "keep_manual"
	StrategyKeepAutomated Strategy = "keep_automated"
	StrategyKeepNewer     Strategy = "keep_newer"
	StrategyKeepOlder     Strategy = "keep_older"
	StrategyMerge         Strategy = "merge"
	StrategyKeepCurrent   Strategy = "keep_current"
	StrategyDiscard       Strategy = "discard"
	StrategyManualReview  Strategy = "manual_review"
)

// Observation is one side of a conflict: a value as some writer saw it.
type Observation struct {
	Value     string            `json:"value"`
	Version   int64             `json:"version"`
	Source    TranslationSource `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
}

// ConflictRecord is a detected disagreement between two observations of the
// same logical record. Similarity is computed once at detection time and is
// immutable afterwards; AutoResolvable and SuggestedStrategy are deterministic
// functions of similarity and type.
type ConflictRecord struct {
	ID                string       `json:"id"`
	RecordID          string       `json:"record_id"`
	Type              ConflictType `json:"type"`
	Current           Observation  `json:"current"`
	Incoming          Observation  `json:"incoming"`
	Similarity        float64      `json:"similarity"`
	AutoResolvable    bool         `json:"auto_resolvable"`
	SuggestedStrategy Strategy     `json:"suggested_strategy,omitempty"`
	DetectedAt        time.Time    `json:"detected_at"`
}
