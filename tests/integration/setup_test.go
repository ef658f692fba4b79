// Package integration exercises the concurrency core end to end against a
// real file-backed SQLite database. These tests need no external services.
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/mocks"
	"github.com/ersonp/lingo-core/internal/domain/services"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
	"github.com/ersonp/lingo-core/internal/infrastructure/relationaldb/sqlite"
)

// stack is the full concurrency core wired onto one database.
type stack struct {
	dbPath       string
	repo         *sqlite.Repository
	coordinator  *sqlite.Coordinator
	lock         *sqlite.VersionLock
	reservations *sqlite.ReservationManager
	conflicts    *services.ConflictService
	translator   *mocks.Translator
	batch        *services.BatchService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	return openStack(t, filepath.Join(t.TempDir(), "lingo.db"))
}

// openStack builds the stack on an explicit path so tests can close and
// reopen the same database.
func openStack(t *testing.T, dbPath string) *stack {
	t.Helper()

	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))

	co := sqlite.NewCoordinator(repo.DB())
	lock := sqlite.NewVersionLock(repo.DB(), co)
	reservations := sqlite.NewReservationManager(repo.DB(), co)
	conflictStore := sqlite.NewConflictRepository(repo.DB(), co)
	conflictSvc := services.NewConflictService(conflictStore, repo, lock, 0)
	translator := &mocks.Translator{}

	return &stack{
		dbPath:       dbPath,
		repo:         repo,
		coordinator:  co,
		lock:         lock,
		reservations: reservations,
		conflicts:    conflictSvc,
		translator:   translator,
		batch:        services.NewBatchService(repo, reservations, lock, translator, nil, conflictSvc, 2, 0),
	}
}

func (s *stack) addUnit(t *testing.T, key, text string) *entities.Unit {
	t.Helper()
	unit := &entities.Unit{ProjectID: "proj", Key: key, SourceText: text}
	require.NoError(t, s.repo.SaveUnit(context.Background(), unit))
	return unit
}
