package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// DefaultBatchConcurrency is how many units a batch translates at once.
const DefaultBatchConcurrency = 4

// BatchReport summarizes one batch run.
type BatchReport struct {
	BatchID    string
	Locale     string
	Requested  int
	Reserved   int
	Skipped    int
	Translated int
	FromMemory int
	Conflicts  int
	Resolved   int
	Failed     int
	Errors     []string
}

// BatchService runs translation batches: it reserves units so concurrent
// batches don't duplicate work, translates each reserved unit (from memory
// when a near-identical source was translated before, from the provider
// otherwise), and commits results through the version lock so an interactive
// edit racing the batch loses nothing silently.
type BatchService struct {
	translations ports.TranslationStore
	reservations ports.ReservationStore
	lock         ports.VersionLock
	translator   ports.Translator
	memory       *MemoryService
	conflicts    *ConflictService

	concurrency int
	ttl         time.Duration
}

// NewBatchService creates a BatchService. The memory service is optional; a
// nil memory disables translation-memory lookups. Non-positive concurrency
// selects the default, zero ttl the reservation default.
func NewBatchService(
	translations ports.TranslationStore,
	reservations ports.ReservationStore,
	lock ports.VersionLock,
	translator ports.Translator,
	memory *MemoryService,
	conflicts *ConflictService,
	concurrency int,
	ttl time.Duration,
) *BatchService {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &BatchService{
		translations: translations,
		reservations: reservations,
		lock:         lock,
		translator:   translator,
		memory:       memory,
		conflicts:    conflicts,
		concurrency:  concurrency,
		ttl:          ttl,
	}
}

// Run translates every unit in the project that is missing a translation for
// locale. batchID identifies this run as the reservation holder; scope is the
// locale, so batches for different locales never contend.
func (s *BatchService) Run(ctx context.Context, batchID, projectID, sourceLocale, locale string) (*BatchReport, error) {
	units, err := s.translations.UnitsMissingTranslation(ctx, projectID, locale)
	if err != nil {
		return nil, fmt.Errorf("finding untranslated units: %w", err)
	}

	report := &BatchReport{BatchID: batchID, Locale: locale, Requested: len(units)}
	if len(units) == 0 {
		return report, nil
	}

	unitIDs := make([]string, len(units))
	unitsByID := make(map[string]entities.Unit, len(units))
	for i, u := range units {
		unitIDs[i] = u.ID
		unitsByID[u.ID] = u
	}

	reserved, err := s.reservations.Reserve(ctx, batchID, unitIDs, locale, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("reserving units: %w", err)
	}
	report.Reserved = len(reserved)
	report.Skipped = len(units) - len(reserved)
	if len(reserved) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var failedIDs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, r := range reserved {
		unit := unitsByID[r.UnitID]
		g.Go(func() error {
			outcome, err := s.translateUnit(gctx, unit, sourceLocale, locale)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", unit.Key, err))
				failedIDs = append(failedIDs, unit.ID)
				// One unit failing does not abort the batch.
				return nil
			}
			report.Translated++
			if outcome.fromMemory {
				report.FromMemory++
			}
			if outcome.conflicted {
				report.Conflicts++
			}
			if outcome.resolved {
				report.Resolved++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_, _ = s.reservations.ReleaseOnError(ctx, batchID, locale, nil, err.Error())
		return report, err
	}

	if len(failedIDs) > 0 {
		if _, err := s.reservations.ReleaseOnError(ctx, batchID, locale, failedIDs, "translation failed"); err != nil {
			return report, fmt.Errorf("releasing failed units: %w", err)
		}
	}
	if _, err := s.reservations.Release(ctx, batchID, locale, nil); err != nil {
		return report, fmt.Errorf("releasing reservations: %w", err)
	}
	return report, nil
}

type unitOutcome struct {
	fromMemory bool
	conflicted bool
	resolved   bool
}

// translateUnit produces a translation for one reserved unit and commits it.
func (s *BatchService) translateUnit(ctx context.Context, unit entities.Unit, sourceLocale, locale string) (unitOutcome, error) {
	var out unitOutcome

	text, source, err := s.lookupOrTranslate(ctx, unit, sourceLocale, locale, &out)
	if err != nil {
		return out, err
	}

	conflicted, resolved, err := s.commit(ctx, unit, locale, text, source)
	out.conflicted = conflicted
	out.resolved = resolved
	if err != nil {
		return out, err
	}

	if s.memory != nil && source == entities.SourceMachine {
		// Memory writes are best-effort; a failure must not undo the commit.
		if err := s.memory.Remember(ctx, unit.ID, locale, unit.SourceText, text); err == nil {
			return out, nil
		}
	}
	return out, nil
}

func (s *BatchService) lookupOrTranslate(ctx context.Context, unit entities.Unit, sourceLocale, locale string, out *unitOutcome) (string, entities.TranslationSource, error) {
	if s.memory != nil {
		match, err := s.memory.Lookup(ctx, unit.SourceText, locale)
		if err == nil && match != nil {
			out.fromMemory = true
			return match.Segment.TranslatedText, entities.SourceMemory, nil
		}
		// A memory failure falls through to the provider.
	}

	result, err := s.translator.Translate(ctx, ports.TranslationRequest{
		Text:         unit.SourceText,
		SourceLocale: sourceLocale,
		TargetLocale: locale,
		Notes:        unit.Notes,
	})
	if err != nil {
		return "", "", fmt.Errorf("translating: %w", err)
	}
	return result.Text, entities.SourceMachine, nil
}

// commit writes the translation: a fresh insert when the unit has none for
// the locale yet, otherwise a conditional update. A version conflict on the
// update means someone edited while the batch held the reservation; the
// conflict is detected and auto-resolved when legality and similarity allow.
func (s *BatchService) commit(ctx context.Context, unit entities.Unit, locale, text string, source entities.TranslationSource) (conflicted, resolved bool, err error) {
	existing, err := s.translations.FindTranslationForUnit(ctx, unit.ID, locale)
	if err != nil {
		return false, false, fmt.Errorf("reading existing translation: %w", err)
	}

	if existing == nil {
		now := timeNow().UTC()
		tr := &entities.Translation{
			UnitID:    unit.ID,
			Locale:    locale,
			Text:      text,
			Source:    source,
			Status:    entities.StatusTranslated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.translations.CreateTranslation(ctx, tr); err != nil {
			return false, false, fmt.Errorf("creating translation: %w", err)
		}
		return false, false, nil
	}

	fields := map[string]any{
		"text":   text,
		"source": string(source),
		"status": string(entities.StatusTranslated),
	}
	_, err = s.lock.UpdateWithVersionCheck(ctx, "translations", existing.ID, existing.Version, fields)
	if err == nil {
		return false, false, nil
	}

	var vc *entities.VersionConflictError
	if !errors.As(err, &vc) {
		return false, false, fmt.Errorf("committing translation: %w", err)
	}

	handled, err := s.handleVersionConflict(ctx, existing, vc, text, source)
	if err != nil {
		return true, false, err
	}
	return true, handled, nil
}

// handleVersionConflict records the conflict between the batch's value and
// whatever won the race, then attempts automatic resolution. The winning
// value is applied with a conditional update against the conflicting version
// so yet another racer fails cleanly rather than being overwritten.
func (s *BatchService) handleVersionConflict(ctx context.Context, existing *entities.Translation, vc *entities.VersionConflictError, text string, source entities.TranslationSource) (bool, error) {
	if s.conflicts == nil {
		return false, vc
	}

	latest, err := s.translations.FindTranslation(ctx, existing.ID)
	if err != nil || latest == nil {
		return false, vc
	}

	current := entities.Observation{
		Value:     latest.Text,
		Version:   latest.Version,
		Source:    latest.Source,
		Timestamp: latest.UpdatedAt,
	}
	incoming := entities.Observation{
		Value:     text,
		Version:   existing.Version,
		Source:    source,
		Timestamp: timeNow().UTC(),
	}

	conflictType := ClassifyConflict(latest.Source, source)
	conflict, err := s.conflicts.Detect(ctx, existing.ID, conflictType, current, incoming)
	if err != nil {
		return false, fmt.Errorf("recording conflict: %w", err)
	}
	if !conflict.AutoResolvable {
		// Left for a human; the batch's value is preserved in the record.
		return false, nil
	}

	resolution, err := s.conflicts.AutoResolve(ctx, conflict)
	if err != nil {
		return false, fmt.Errorf("auto-resolving conflict: %w", err)
	}

	fields := map[string]any{"text": resolution.ResolvedValue}
	if _, err := s.lock.UpdateWithVersionCheck(ctx, "translations", existing.ID, latest.Version, fields); err != nil {
		var again *entities.VersionConflictError
		if errors.As(err, &again) {
			// A third writer got in; their value stands and the resolution
			// remains on record.
			return true, nil
		}
		return true, fmt.Errorf("applying resolution: %w", err)
	}
	return true, nil
}
