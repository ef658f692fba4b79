package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/mocks"
	"github.com/ersonp/lingo-core/internal/domain/ports"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
	"github.com/ersonp/lingo-core/internal/infrastructure/relationaldb/sqlite"
)

// batchFixture wires a BatchService onto real sqlite stores with mocked
// translator and memory.
type batchFixture struct {
	repo         *sqlite.Repository
	lock         *sqlite.VersionLock
	reservations *sqlite.ReservationManager
	conflicts    *ConflictService
	translator   *mocks.Translator
	memory       *mocks.TranslationMemory
	batch        *BatchService
}

func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lingo.db")
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))

	co := sqlite.NewCoordinator(repo.DB())
	lock := sqlite.NewVersionLock(repo.DB(), co)
	reservations := sqlite.NewReservationManager(repo.DB(), co)
	conflictStore := sqlite.NewConflictRepository(repo.DB(), co)

	translator := &mocks.Translator{}
	memory := &mocks.TranslationMemory{}
	memorySvc := NewMemoryService(&mocks.Embedder{}, memory, 0)
	conflictSvc := NewConflictService(conflictStore, repo, lock, 0)

	return &batchFixture{
		repo:         repo,
		lock:         lock,
		reservations: reservations,
		conflicts:    conflictSvc,
		translator:   translator,
		memory:       memory,
		batch:        NewBatchService(repo, reservations, lock, translator, memorySvc, conflictSvc, 2, 0),
	}
}

func mocksSegment(unitID, locale, source, translated string) ports.MemorySegment {
	return ports.MemorySegment{
		ID:             unitID + ":" + locale,
		UnitID:         unitID,
		Locale:         locale,
		SourceText:     source,
		TranslatedText: translated,
	}
}

func (f *batchFixture) addUnit(t *testing.T, key, text string) *entities.Unit {
	t.Helper()
	unit := &entities.Unit{ProjectID: "proj", Key: key, SourceText: text}
	require.NoError(t, f.repo.SaveUnit(context.Background(), unit))
	return unit
}

func TestBatchService_Run_TranslatesMissingUnits(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	f.addUnit(t, "greeting.hello", "Hello")
	f.addUnit(t, "greeting.bye", "Goodbye")
	f.addUnit(t, "door.open", "Open the door")

	report, err := f.batch.Run(ctx, "batch-1", "proj", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 3, report.Reserved)
	assert.Equal(t, 3, report.Translated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.FromMemory)

	translations, err := f.repo.ListTranslations(ctx, "proj", "fr")
	require.NoError(t, err)
	require.Len(t, translations, 3)
	for _, tr := range translations {
		assert.Equal(t, entities.SourceMachine, tr.Source)
		assert.Equal(t, int64(1), tr.Version)
		assert.Contains(t, tr.Text, "[fr] ")
	}

	// Everything translated, nothing left behind.
	missing, err := f.repo.UnitsMissingTranslation(ctx, "proj", "fr")
	require.NoError(t, err)
	assert.Empty(t, missing)

	stats, err := f.reservations.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats[entities.ReservationCompleted])
	assert.Equal(t, 0, stats[entities.ReservationActive])
}

func TestBatchService_Run_NothingToDo(t *testing.T) {
	f := newBatchFixture(t)

	report, err := f.batch.Run(context.Background(), "batch-1", "proj", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Requested)
	assert.Equal(t, 0, f.translator.CallCount())
}

func TestBatchService_Run_UsesTranslationMemory(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	f.addUnit(t, "greeting.hello", "Hello")

	// A past batch already translated this exact source text.
	require.NoError(t, f.memory.SaveSegment(ctx, mocksSegment("u-old", "fr", "Hello", "Bonjour")))

	report, err := f.batch.Run(ctx, "batch-1", "proj", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Translated)
	assert.Equal(t, 1, report.FromMemory)
	assert.Equal(t, 0, f.translator.CallCount())

	translations, err := f.repo.ListTranslations(ctx, "proj", "fr")
	require.NoError(t, err)
	require.Len(t, translations, 1)
	assert.Equal(t, "Bonjour", translations[0].Text)
	assert.Equal(t, entities.SourceMemory, translations[0].Source)
}

func TestBatchService_Run_RecordsNewMachineTranslations(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	unit := f.addUnit(t, "greeting.hello", "Hello")

	_, err := f.batch.Run(ctx, "batch-1", "proj", "en", "fr")
	require.NoError(t, err)

	// The fresh machine translation is remembered for future batches.
	seg, ok := f.memory.Segments[unit.ID+":fr"]
	require.True(t, ok)
	assert.Equal(t, "Hello", seg.SourceText)
	assert.Equal(t, "[fr] Hello", seg.TranslatedText)
}

func TestBatchService_Run_UnitFailureDoesNotAbortBatch(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	f.addUnit(t, "greeting.hello", "Hello")
	f.addUnit(t, "greeting.bye", "Goodbye")
	f.translator.Err = errors.New("provider unreachable")

	report, err := f.batch.Run(ctx, "batch-1", "proj", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Translated)
	assert.Len(t, report.Errors, 2)

	// Failed units give up their reservations with a failure mark.
	stats, err := f.reservations.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[entities.ReservationFailed])
	assert.Equal(t, 0, stats[entities.ReservationActive])
}

func TestBatchService_Run_SkipsUnitsReservedByAnotherBatch(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	hello := f.addUnit(t, "greeting.hello", "Hello")
	f.addUnit(t, "greeting.bye", "Goodbye")

	// Another batch already holds one of the units.
	_, err := f.reservations.Reserve(ctx, "batch-other", []string{hello.ID}, "fr", 0)
	require.NoError(t, err)

	report, err := f.batch.Run(ctx, "batch-1", "proj", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Requested)
	assert.Equal(t, 1, report.Reserved)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Translated)
}

func TestBatchService_HandleVersionConflict_AutoResolves(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	unit := f.addUnit(t, "door.open", "Open the door")
	stale := &entities.Translation{
		UnitID: unit.ID, Locale: "fr", Text: "Open the door",
		Source: entities.SourceMachine, Status: entities.StatusTranslated,
	}
	require.NoError(t, f.repo.CreateTranslation(ctx, stale))

	// An edit lands after the batch read version 1.
	_, err := f.lock.UpdateWithVersionCheck(ctx, "translations", stale.ID, 1, map[string]any{
		"text": "Open the door!",
	})
	require.NoError(t, err)

	vc := &entities.VersionConflictError{Table: "translations", ID: stale.ID, Expected: 1, Actual: 2}
	resolved, err := f.batch.handleVersionConflict(ctx, stale, vc, "Open the door.", entities.SourceMachine)
	require.NoError(t, err)
	assert.True(t, resolved)

	// Both sides were automated and near-identical, so the merge applied the
	// newer (incoming) value on top of the conflicting version.
	latest, err := f.repo.FindTranslation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open the door.", latest.Text)
	assert.Equal(t, int64(3), latest.Version)

	stats, err := f.conflicts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Automatic)
}

func TestBatchService_HandleVersionConflict_LeavesManualEditsAlone(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	unit := f.addUnit(t, "greeting.hello", "Hello")
	stale := &entities.Translation{
		UnitID: unit.ID, Locale: "fr", Text: "Bonjour",
		Source: entities.SourceMachine, Status: entities.StatusTranslated,
	}
	require.NoError(t, f.repo.CreateTranslation(ctx, stale))

	// A human rewrote the value while the batch held its stale read.
	_, err := f.lock.UpdateWithVersionCheck(ctx, "translations", stale.ID, 1, map[string]any{
		"text":   "Bonjour tout le monde",
		"source": string(entities.SourceManual),
	})
	require.NoError(t, err)

	vc := &entities.VersionConflictError{Table: "translations", ID: stale.ID, Expected: 1, Actual: 2}
	resolved, err := f.batch.handleVersionConflict(ctx, stale, vc, "Salut", entities.SourceMachine)
	require.NoError(t, err)
	assert.False(t, resolved)

	// The manual edit stands; the disagreement is recorded for a human.
	latest, err := f.repo.FindTranslation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour tout le monde", latest.Text)
	assert.Equal(t, int64(2), latest.Version)

	pending, err := f.conflicts.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entities.ConflictManualVsAutomated, pending[0].Type)
	assert.False(t, pending[0].AutoResolvable)
}
