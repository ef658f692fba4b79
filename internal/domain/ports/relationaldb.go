package ports

import (
	"context"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

// VersionedUpdate is one element of a batch conditional update.
type VersionedUpdate struct {
	ID              string
	ExpectedVersion int64
	Fields          map[string]any
}

// VersionLock defines optimistic concurrency control over versioned tables.
// Every mutation is a single conditional statement (WHERE id = ? AND
// version = ?), never read-then-write, and bumps the version by exactly 1.
type VersionLock interface {
	// CheckVersion returns the current version if it equals expected,
	// otherwise a *entities.VersionConflictError carrying both versions.
	CheckVersion(ctx context.Context, table, id string, expected int64) (int64, error)

	// UpdateWithVersionCheck conditionally writes fields, bumps the version
	// and stamps updated_at in one atomic statement. Returns the new version.
	UpdateWithVersionCheck(ctx context.Context, table, id string, expected int64, fields map[string]any) (int64, error)

	// IncrementVersion touches a record's version without changing payload.
	IncrementVersion(ctx context.Context, table, id string) (int64, error)

	// BatchUpdateWithVersionCheck applies all updates atomically: if any one
	// fails its version check the whole batch is rolled back.
	BatchUpdateWithVersionCheck(ctx context.Context, table string, updates []VersionedUpdate) error

	// HasBeenModified reports whether the current version exceeds since.
	HasBeenModified(ctx context.Context, table, id string, since int64) (bool, error)
}

// ReservationStore defines time-bounded, best-effort mutual exclusion over
// (unit, scope) keys. Expiry is swept lazily before every reserve and
// availability query.
type ReservationStore interface {
	// Reserve claims each unit not already actively reserved. Units held by
	// another holder are silently skipped; the result is the subset reserved.
	Reserve(ctx context.Context, holderID string, unitIDs []string, scope string, ttl time.Duration) ([]entities.Reservation, error)

	// Release marks the holder's active reservations completed. A nil or
	// empty unitIDs releases everything the holder owns in the scope.
	Release(ctx context.Context, holderID, scope string, unitIDs []string) (int, error)

	// ReleaseOnError marks the holder's active reservations failed,
	// recording a reason. Used on batch abort or cancellation.
	ReleaseOnError(ctx context.Context, holderID, scope string, unitIDs []string, reason string) (int, error)

	// AvailableUnits returns the subset of unitIDs with no active reservation.
	AvailableUnits(ctx context.Context, unitIDs []string, scope string) ([]string, error)

	// Extend pushes out the expiry of all the holder's active reservations.
	Extend(ctx context.Context, holderID, scope string, extension time.Duration) (int, error)

	// ListActive returns active reservations, optionally filtered by scope.
	ListActive(ctx context.Context, scope string) ([]entities.Reservation, error)

	// Stats returns reservation counts grouped by status.
	Stats(ctx context.Context) (map[entities.ReservationStatus]int, error)
}

// ConflictStats aggregates conflict and resolution counts for reporting.
type ConflictStats struct {
	ByType     map[entities.ConflictType]int
	ByStrategy map[entities.Strategy]int
	Resolved   int
	Unresolved int
	Automatic  int
}

// ConflictStore persists conflict records and their one-shot resolutions.
type ConflictStore interface {
	SaveConflict(ctx context.Context, c *entities.ConflictRecord) error
	FindConflict(ctx context.Context, id string) (*entities.ConflictRecord, error)

	// ListUnresolved returns conflicts without a persisted resolution,
	// newest first.
	ListUnresolved(ctx context.Context, limit int) ([]entities.ConflictRecord, error)

	// SaveResolution persists a resolution. It fails if the conflict already
	// has one; resolution is terminal and never duplicated.
	SaveResolution(ctx context.Context, r *entities.Resolution) error
	FindResolution(ctx context.Context, conflictID string) (*entities.Resolution, error)

	ConflictStats(ctx context.Context) (ConflictStats, error)
}

// TranslationStore defines CRUD over units and translations. Translation
// payloads are owned by the domain layer; the version column is owned
// exclusively by the VersionLock.
type TranslationStore interface {
	SaveUnit(ctx context.Context, unit *entities.Unit) error
	FindUnit(ctx context.Context, unitID string) (*entities.Unit, error)
	FindUnitByKey(ctx context.Context, projectID, key string) (*entities.Unit, error)
	ListUnits(ctx context.Context, projectID string, limit, offset int) ([]entities.Unit, error)

	// UnitsMissingTranslation returns units with no translation row for the
	// locale, in key order.
	UnitsMissingTranslation(ctx context.Context, projectID, locale string) ([]entities.Unit, error)

	// CreateTranslation inserts a new translation with version 1.
	CreateTranslation(ctx context.Context, tr *entities.Translation) error
	FindTranslation(ctx context.Context, id string) (*entities.Translation, error)
	FindTranslationForUnit(ctx context.Context, unitID, locale string) (*entities.Translation, error)
	ListTranslations(ctx context.Context, projectID, locale string) ([]entities.Translation, error)
}
