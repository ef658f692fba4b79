package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

const (
	// DefaultReservationTTL is the lease length when callers pass zero.
	DefaultReservationTTL = 30 * time.Minute
	// MinReservationTTL and MaxReservationTTL clamp requested lease lengths.
	MinReservationTTL = 5 * time.Minute
	MaxReservationTTL = 2 * time.Hour
	// MinExtension and MaxExtension clamp lease extensions.
	MinExtension = 5 * time.Minute
	MaxExtension = time.Hour
)

// ReservationBounds sets the windows requested lease lengths and extensions
// are clamped into. Zero fields fall back to the package defaults, so callers
// only set the limits they care about.
type ReservationBounds struct {
	DefaultTTL   time.Duration
	MinTTL       time.Duration
	MaxTTL       time.Duration
	MinExtension time.Duration
	MaxExtension time.Duration
}

// DefaultReservationBounds returns the bounds used when callers don't supply
// their own.
func DefaultReservationBounds() ReservationBounds {
	return ReservationBounds{
		DefaultTTL:   DefaultReservationTTL,
		MinTTL:       MinReservationTTL,
		MaxTTL:       MaxReservationTTL,
		MinExtension: MinExtension,
		MaxExtension: MaxExtension,
	}
}

// ReservationManager implements ports.ReservationStore. Leases are advisory:
// they fence cooperating batch workers off each other's units but are not a
// correctness guarantee, which stays with the version lock. There is no
// background sweeper; expiry is applied lazily inside the same transaction as
// every claim and availability query.
type ReservationManager struct {
	db     *sql.DB
	co     *Coordinator
	bounds ReservationBounds
}

// NewReservationManager creates a ReservationManager on the shared handle,
// clamping leases to the default bounds.
func NewReservationManager(db *sql.DB, co *Coordinator) *ReservationManager {
	return NewReservationManagerWithBounds(db, co, ReservationBounds{})
}

// NewReservationManagerWithBounds creates a ReservationManager with custom
// clamp windows, for callers that need leases the defaults rule out, such as
// short-lived test fixtures or long manual editing sessions. Zero fields keep
// their defaults.
func NewReservationManagerWithBounds(db *sql.DB, co *Coordinator, bounds ReservationBounds) *ReservationManager {
	defaults := DefaultReservationBounds()
	if bounds.DefaultTTL == 0 {
		bounds.DefaultTTL = defaults.DefaultTTL
	}
	if bounds.MinTTL == 0 {
		bounds.MinTTL = defaults.MinTTL
	}
	if bounds.MaxTTL == 0 {
		bounds.MaxTTL = defaults.MaxTTL
	}
	if bounds.MinExtension == 0 {
		bounds.MinExtension = defaults.MinExtension
	}
	if bounds.MaxExtension == 0 {
		bounds.MaxExtension = defaults.MaxExtension
	}
	return &ReservationManager{db: db, co: co, bounds: bounds}
}

// clampTTL folds a requested lease length into the manager's window. Zero
// means the default.
func (m *ReservationManager) clampTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return m.bounds.DefaultTTL
	}
	if ttl < m.bounds.MinTTL {
		return m.bounds.MinTTL
	}
	if ttl > m.bounds.MaxTTL {
		return m.bounds.MaxTTL
	}
	return ttl
}

// clampExtension folds a requested extension into the manager's window.
func (m *ReservationManager) clampExtension(ext time.Duration) time.Duration {
	if ext < m.bounds.MinExtension {
		return m.bounds.MinExtension
	}
	if ext > m.bounds.MaxExtension {
		return m.bounds.MaxExtension
	}
	return ext
}

// sweepExpired transitions active reservations past their expiry to expired.
// Runs inside the caller's transaction so the sweep and the claim that
// follows it are atomic.
func sweepExpired(ctx context.Context, tx DBTX, now time.Time) error {
	query := `UPDATE reservations
		SET status = 'expired', released_at = ?
		WHERE status = 'active' AND expires_at <= ?`
	if _, err := tx.ExecContext(ctx, query, now.Unix(), now.Unix()); err != nil {
		return fmt.Errorf("sweeping expired reservations: %w", err)
	}
	return nil
}

// Reserve claims each unit in unitIDs for holderID within scope. Units with a
// live reservation held by someone else are skipped, not failed: the returned
// slice is the subset actually claimed and partial results are expected. The
// claim runs under an immediate transaction so two concurrent holders cannot
// both observe a unit as free.
func (m *ReservationManager) Reserve(ctx context.Context, holderID string, unitIDs []string, scope string, ttl time.Duration) ([]entities.Reservation, error) {
	if holderID == "" {
		return nil, fmt.Errorf("holder id is required")
	}
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}
	ttl = m.clampTTL(ttl)

	var reserved []entities.Reservation
	err := m.co.RunExclusive(ctx, func(ctx context.Context, tx DBTX) error {
		reserved = reserved[:0]

		now := timeNow().UTC()
		if err := sweepExpired(ctx, tx, now); err != nil {
			return err
		}
		expires := now.Add(ttl)

		// The INSERT ... SELECT WHERE NOT EXISTS keeps check and claim in one
		// statement; the partial unique index backstops it.
		claim := `INSERT INTO reservations (id, holder_id, unit_id, scope, status, reserved_at, expires_at)
			SELECT ?, ?, ?, ?, 'active', ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM reservations
				WHERE unit_id = ? AND scope = ? AND status = 'active'
			)`

		for _, unitID := range unitIDs {
			id := generateUUID()
			res, err := tx.ExecContext(ctx, claim,
				id, holderID, unitID, scope, now.Unix(), expires.Unix(),
				unitID, scope,
			)
			if err != nil {
				return fmt.Errorf("reserving unit %s: %w", unitID, err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reading rows affected: %w", err)
			}
			if rows == 0 {
				continue
			}
			reserved = append(reserved, entities.Reservation{
				ID:         id,
				HolderID:   holderID,
				UnitID:     unitID,
				Scope:      scope,
				Status:     entities.ReservationActive,
				ReservedAt: now,
				ExpiresAt:  expires,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Release marks the holder's active reservations completed. A nil or empty
// unitIDs releases everything the holder owns in the scope. Returns how many
// reservations changed; releasing an already released or expired lease is a
// no-op, not an error.
func (m *ReservationManager) Release(ctx context.Context, holderID, scope string, unitIDs []string) (int, error) {
	return m.release(ctx, holderID, scope, unitIDs, entities.ReservationCompleted, "")
}

// ReleaseOnError marks the holder's active reservations failed, recording the
// reason. Used when a batch aborts so the audit trail says why units came free.
func (m *ReservationManager) ReleaseOnError(ctx context.Context, holderID, scope string, unitIDs []string, reason string) (int, error) {
	return m.release(ctx, holderID, scope, unitIDs, entities.ReservationFailed, reason)
}

func (m *ReservationManager) release(ctx context.Context, holderID, scope string, unitIDs []string, status entities.ReservationStatus, reason string) (int, error) {
	if holderID == "" {
		return 0, fmt.Errorf("holder id is required")
	}

	query := `UPDATE reservations SET status = ?, released_at = ?, reason = ?
		WHERE holder_id = ? AND scope = ? AND status = 'active'`
	args := []any{status, timeNow().UTC().Unix(), nullableString(reason), holderID, scope}

	if len(unitIDs) > 0 {
		placeholders, idArgs := inPlaceholders(unitIDs)
		query += " AND unit_id IN (" + placeholders + ")"
		args = append(args, idArgs...)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("releasing reservations for %s: %w", holderID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(rows), nil
}

// AvailableUnits returns the subset of unitIDs with no active reservation in
// scope, preserving the input order. Expired leases are swept first so a
// stale lease never blocks availability.
func (m *ReservationManager) AvailableUnits(ctx context.Context, unitIDs []string, scope string) ([]string, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}

	var available []string
	err := m.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		available = available[:0]

		if err := sweepExpired(ctx, tx, timeNow().UTC()); err != nil {
			return err
		}

		placeholders, idArgs := inPlaceholders(unitIDs)
		query := `SELECT unit_id FROM reservations
			WHERE scope = ? AND status = 'active' AND unit_id IN (` + placeholders + `)`
		args := append([]any{scope}, idArgs...)

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying active reservations: %w", err)
		}
		defer rows.Close()

		taken := make(map[string]bool, len(unitIDs))
		for rows.Next() {
			var unitID string
			if err := rows.Scan(&unitID); err != nil {
				return fmt.Errorf("scanning reserved unit: %w", err)
			}
			taken[unitID] = true
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating reserved units: %w", err)
		}

		for _, unitID := range unitIDs {
			if !taken[unitID] {
				available = append(available, unitID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return available, nil
}

// Extend pushes out the expiry of all the holder's active reservations in
// scope by the clamped extension. Returns how many leases were extended;
// zero means everything already expired or was released.
func (m *ReservationManager) Extend(ctx context.Context, holderID, scope string, extension time.Duration) (int, error) {
	if holderID == "" {
		return 0, fmt.Errorf("holder id is required")
	}
	extension = m.clampExtension(extension)

	var extended int
	err := m.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		extended = 0

		if err := sweepExpired(ctx, tx, timeNow().UTC()); err != nil {
			return err
		}

		query := `UPDATE reservations SET expires_at = expires_at + ?
			WHERE holder_id = ? AND scope = ? AND status = 'active'`
		res, err := tx.ExecContext(ctx, query, int64(extension.Seconds()), holderID, scope)
		if err != nil {
			return fmt.Errorf("extending reservations for %s: %w", holderID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		extended = int(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return extended, nil
}

// ListActive returns active, unexpired reservations ordered by expiry, soonest
// first. An empty scope lists every scope.
func (m *ReservationManager) ListActive(ctx context.Context, scope string) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := m.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		reservations = reservations[:0]

		if err := sweepExpired(ctx, tx, timeNow().UTC()); err != nil {
			return err
		}

		query := `SELECT id, holder_id, unit_id, scope, status, reserved_at, expires_at, released_at, reason
			FROM reservations WHERE status = 'active'`
		args := []any{}
		if scope != "" {
			query += " AND scope = ?"
			args = append(args, scope)
		}
		query += " ORDER BY expires_at ASC"

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("listing active reservations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanReservation(rows)
			if err != nil {
				return err
			}
			reservations = append(reservations, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// Stats returns reservation counts grouped by status, the expired bucket
// refreshed by a sweep first.
func (m *ReservationManager) Stats(ctx context.Context) (map[entities.ReservationStatus]int, error) {
	stats := make(map[entities.ReservationStatus]int)
	err := m.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		for k := range stats {
			delete(stats, k)
		}

		if err := sweepExpired(ctx, tx, timeNow().UTC()); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
		if err != nil {
			return fmt.Errorf("counting reservations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				return fmt.Errorf("scanning reservation counts: %w", err)
			}
			stats[entities.ReservationStatus(status)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// scanReservation maps a reservation row, converting unix-second columns back
// to time.Time.
func scanReservation(rows *sql.Rows) (entities.Reservation, error) {
	var r entities.Reservation
	var reservedAt, expiresAt int64
	var releasedAt sql.NullInt64
	var reason sql.NullString

	err := rows.Scan(&r.ID, &r.HolderID, &r.UnitID, &r.Scope, &r.Status,
		&reservedAt, &expiresAt, &releasedAt, &reason)
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("scanning reservation: %w", err)
	}

	r.ReservedAt = time.Unix(reservedAt, 0).UTC()
	r.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if releasedAt.Valid {
		t := time.Unix(releasedAt.Int64, 0).UTC()
		r.ReleasedAt = &t
	}
	r.Reason = reason.String
	return r, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
