package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// maxMergeWordDelta is the fraction of the larger word count by which the two
// values may differ before MergeValues refuses.
const maxMergeWordDelta = 0.20

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// ConflictService detects conflicts between competing writes and resolves
// them, either automatically for near-identical values or by applying a
// human-chosen strategy. Detection is pure computation; persistence of the
// record and its one-shot resolution goes through the conflict store.
type ConflictService struct {
	conflicts    ports.ConflictStore
	translations ports.TranslationStore
	lock         ports.VersionLock

	// autoMergeThreshold is the similarity at or above which MergeValues
	// returns the incoming value.
	autoMergeThreshold float64
}

// NewConflictService creates a ConflictService. A non-positive
// autoMergeThreshold selects the default.
func NewConflictService(conflicts ports.ConflictStore, translations ports.TranslationStore, lock ports.VersionLock, autoMergeThreshold float64) *ConflictService {
	if autoMergeThreshold <= 0 {
		autoMergeThreshold = DefaultAutoMergeThreshold
	}
	return &ConflictService{
		conflicts:          conflicts,
		translations:       translations,
		lock:               lock,
		autoMergeThreshold: autoMergeThreshold,
	}
}

// Detect builds and persists a ConflictRecord for two observations of the
// same record. Similarity, auto-resolvability and the suggested strategy are
// computed here, once, and are immutable afterwards.
func (s *ConflictService) Detect(ctx context.Context, recordID string, conflictType entities.ConflictType, current, incoming entities.Observation) (*entities.ConflictRecord, error) {
	if !conflictType.Valid() {
		return nil, fmt.Errorf("unknown conflict type: %q", conflictType)
	}

	similarity := TextSimilarity(current.Value, incoming.Value)
	auto := AutoResolvable(conflictType, similarity)

	conflict := &entities.ConflictRecord{
		RecordID:          recordID,
		Type:              conflictType,
		Current:           current,
		Incoming:          incoming,
		Similarity:        similarity,
		AutoResolvable:    auto,
		SuggestedStrategy: SuggestedStrategy(conflictType, auto),
		DetectedAt:        timeNow().UTC(),
	}

	if err := s.conflicts.SaveConflict(ctx, conflict); err != nil {
		return nil, fmt.Errorf("persisting conflict: %w", err)
	}
	return conflict, nil
}

// Resolve validates the strategy against the conflict's type, computes the
// resolved value, and persists a Resolution with the next version set to
// max(currentVersion, incomingVersion)+1. Resolution is one-shot: a second
// call on the same conflict fails with *entities.ResolutionError.
func (s *ConflictService) Resolve(ctx context.Context, conflict *entities.ConflictRecord, strategy entities.Strategy, resolvedBy string) (*entities.Resolution, error) {
	return s.resolve(ctx, conflict, strategy, resolvedBy, false)
}

// AutoResolve applies the conflict's suggested strategy without a human,
// recording "system" as the resolver. Fails with *entities.ResolutionError
// when the conflict is not auto-resolvable.
func (s *ConflictService) AutoResolve(ctx context.Context, conflict *entities.ConflictRecord) (*entities.Resolution, error) {
	if !conflict.AutoResolvable {
		return nil, &entities.ResolutionError{
			ConflictID: conflict.ID,
			Reason: fmt.Sprintf("not auto-resolvable: similarity %.2f below threshold for type %s",
				conflict.Similarity, conflict.Type),
		}
	}
	return s.resolve(ctx, conflict, conflict.SuggestedStrategy, entities.SystemResolver, true)
}

func (s *ConflictService) resolve(ctx context.Context, conflict *entities.ConflictRecord, strategy entities.Strategy, resolvedBy string, automatic bool) (*entities.Resolution, error) {
	if strategy == entities.StrategyManualReview {
		return nil, &entities.ResolutionError{
			ConflictID: conflict.ID,
			Reason:     "manual_review defers to a human and cannot be applied programmatically",
		}
	}
	if !StrategyAllowed(conflict.Type, strategy) {
		return nil, &entities.ResolutionError{
			ConflictID: conflict.ID,
			Reason:     fmt.Sprintf("strategy %s is not legal for %s conflicts", strategy, conflict.Type),
		}
	}

	value, err := s.resolvedValue(conflict, strategy)
	if err != nil {
		return nil, err
	}

	version := conflict.Current.Version
	if conflict.Incoming.Version > version {
		version = conflict.Incoming.Version
	}

	resolution := &entities.Resolution{
		ConflictID:      conflict.ID,
		Strategy:        strategy,
		ResolvedValue:   value,
		ResolvedVersion: version + 1,
		ResolvedBy:      resolvedBy,
		Automatic:       automatic,
		ResolvedAt:      timeNow().UTC(),
	}
	if err := s.conflicts.SaveResolution(ctx, resolution); err != nil {
		return nil, err
	}
	return resolution, nil
}

// resolvedValue maps a legal strategy to the winning value.
func (s *ConflictService) resolvedValue(conflict *entities.ConflictRecord, strategy entities.Strategy) (string, error) {
	cur, inc := conflict.Current, conflict.Incoming

	switch strategy {
	case entities.StrategyKeepManual:
		if cur.Source == entities.SourceManual {
			return cur.Value, nil
		}
		return inc.Value, nil

	case entities.StrategyKeepAutomated:
		if cur.Source.Automated() {
			return cur.Value, nil
		}
		return inc.Value, nil

	case entities.StrategyKeepNewer:
		if inc.Timestamp.After(cur.Timestamp) {
			return inc.Value, nil
		}
		return cur.Value, nil

	case entities.StrategyKeepOlder:
		if inc.Timestamp.Before(cur.Timestamp) {
			return inc.Value, nil
		}
		return cur.Value, nil

	case entities.StrategyMerge:
		// A textual merge of two divergent sentences is not attempted here;
		// merge defers to the newer side.
		if inc.Timestamp.After(cur.Timestamp) {
			return inc.Value, nil
		}
		return cur.Value, nil

	case entities.StrategyKeepCurrent, entities.StrategyDiscard:
		return cur.Value, nil
	}

	return "", &entities.ResolutionError{
		ConflictID: conflict.ID,
		Reason:     fmt.Sprintf("unknown strategy: %q", strategy),
	}
}

// MergeValues combines two values with a word-count bounded heuristic:
// byte-identical values return as-is, values whose word counts differ by more
// than 20% of the larger count are refused, and otherwise the incoming value
// wins when similarity clears the auto-merge threshold.
func (s *ConflictService) MergeValues(current, incoming string) (string, error) {
	if current == incoming {
		return current, nil
	}

	cw, iw := wordCount(current), wordCount(incoming)
	larger := cw
	if iw > larger {
		larger = iw
	}
	delta := cw - iw
	if delta < 0 {
		delta = -delta
	}
	if larger > 0 && float64(delta) > maxMergeWordDelta*float64(larger) {
		return "", fmt.Errorf("refusing to merge: word counts differ by %d of %d words", delta, larger)
	}

	if TextSimilarity(current, incoming) >= s.autoMergeThreshold {
		return incoming, nil
	}
	return "", fmt.Errorf("refusing to merge: values are too dissimilar")
}

// CheckForConflicts inspects a translation for a version mismatch before an
// edit commits. Matching versions report no conflict (nil, nil); a mismatch
// produces a persisted version_mismatch ConflictRecord for the caller to
// resolve.
func (s *ConflictService) CheckForConflicts(ctx context.Context, translationID string, expectedVersion int64, proposedText string, proposedSource entities.TranslationSource) (*entities.ConflictRecord, error) {
	tr, err := s.translations.FindTranslation(ctx, translationID)
	if err != nil {
		return nil, fmt.Errorf("reading translation: %w", err)
	}
	if tr == nil {
		return nil, &entities.RecordNotFoundError{Table: "translations", ID: translationID}
	}
	if tr.Version == expectedVersion {
		return nil, nil
	}

	current := entities.Observation{
		Value:     tr.Text,
		Version:   tr.Version,
		Source:    tr.Source,
		Timestamp: tr.UpdatedAt,
	}
	incoming := entities.Observation{
		Value:     proposedText,
		Version:   expectedVersion,
		Source:    proposedSource,
		Timestamp: timeNow().UTC(),
	}
	return s.Detect(ctx, translationID, entities.ConflictVersionMismatch, current, incoming)
}

// Pending lists unresolved conflicts, newest first.
func (s *ConflictService) Pending(ctx context.Context, limit int) ([]entities.ConflictRecord, error) {
	return s.conflicts.ListUnresolved(ctx, limit)
}

// Get loads a conflict together with its resolution, if any.
func (s *ConflictService) Get(ctx context.Context, conflictID string) (*entities.ConflictRecord, *entities.Resolution, error) {
	conflict, err := s.conflicts.FindConflict(ctx, conflictID)
	if err != nil {
		return nil, nil, err
	}
	resolution, err := s.conflicts.FindResolution(ctx, conflictID)
	if err != nil {
		return nil, nil, err
	}
	return conflict, resolution, nil
}

// Stats returns conflict and resolution counts for reporting.
func (s *ConflictService) Stats(ctx context.Context) (ports.ConflictStats, error) {
	return s.conflicts.ConflictStats(ctx)
}
