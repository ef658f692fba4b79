package services

import "github.com/ersonp/lingo-core/internal/domain/entities"

const (
	// AutoResolveThreshold is the similarity at or above which any conflict
	// between two observations may resolve automatically.
	AutoResolveThreshold = 0.95
	// AutomatedAutoResolveThreshold is the lower bar applied when both sides
	// of the conflict came from automated writers.
	AutomatedAutoResolveThreshold = 0.90
	// DefaultAutoMergeThreshold is the similarity at or above which MergeValues
	// picks the incoming value instead of refusing.
	DefaultAutoMergeThreshold = 0.90
)

// strategyTable maps each conflict type to the strategies legal for it.
// manual_review is legal for every type and checked separately.
var strategyTable = map[entities.ConflictType][]entities.Strategy{
	entities.ConflictManualVsAutomated: {
		entities.StrategyKeepManual,
		entities.StrategyKeepAutomated,
		entities.StrategyMerge,
	},
	entities.ConflictManualVsManual: {
		entities.StrategyKeepNewer,
		entities.StrategyKeepOlder,
		entities.StrategyMerge,
	},
	entities.ConflictAutomatedVsAutomated: {
		entities.StrategyKeepNewer,
		entities.StrategyKeepOlder,
		entities.StrategyMerge,
	},
	entities.ConflictVersionMismatch: {
		entities.StrategyKeepCurrent,
		entities.StrategyDiscard,
		entities.StrategyMerge,
	},
	entities.ConflictLockTimeout: {
		entities.StrategyKeepCurrent,
		entities.StrategyDiscard,
	},
}

// ValidStrategies returns the strategies legal for a conflict type, always
// including manual_review.
func ValidStrategies(t entities.ConflictType) []entities.Strategy {
	base := strategyTable[t]
	out := make([]entities.Strategy, 0, len(base)+1)
	out = append(out, base...)
	out = append(out, entities.StrategyManualReview)
	return out
}

// StrategyAllowed reports whether a strategy is legal for a conflict type.
func StrategyAllowed(t entities.ConflictType, s entities.Strategy) bool {
	if s == entities.StrategyManualReview {
		return true
	}
	for _, allowed := range strategyTable[t] {
		if allowed == s {
			return true
		}
	}
	return false
}

// AutoResolvable reports whether a conflict may be resolved without a human:
// similarity at or above 0.95 for any type, or at or above 0.90 when both
// writers were automated.
func AutoResolvable(t entities.ConflictType, similarity float64) bool {
	if similarity >= AutoResolveThreshold {
		return true
	}
	return t == entities.ConflictAutomatedVsAutomated && similarity >= AutomatedAutoResolveThreshold
}

// SuggestedStrategy picks the default strategy for a conflict: merge when the
// conflict auto-resolves and merge is legal for its type, otherwise a
// per-type default with manual_review for the pairings a human should see.
func SuggestedStrategy(t entities.ConflictType, autoResolvable bool) entities.Strategy {
	if autoResolvable {
		if StrategyAllowed(t, entities.StrategyMerge) {
			return entities.StrategyMerge
		}
		return entities.StrategyKeepCurrent
	}
	switch t {
	case entities.ConflictManualVsAutomated:
		return entities.StrategyKeepManual
	case entities.ConflictAutomatedVsAutomated:
		return entities.StrategyKeepNewer
	}
	return entities.StrategyManualReview
}

// ClassifyConflict derives the conflict type from the two writers' sources.
func ClassifyConflict(currentSrc, incomingSrc entities.TranslationSource) entities.ConflictType {
	switch {
	case !currentSrc.Automated() && !incomingSrc.Automated():
		return entities.ConflictManualVsManual
	case currentSrc.Automated() && incomingSrc.Automated():
		return entities.ConflictAutomatedVsAutomated
	default:
		return entities.ConflictManualVsAutomated
	}
}
