package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// ConflictRepository implements ports.ConflictStore. Conflicts and their
// resolutions are append-only; the resolutions primary key is the conflict id,
// so persisting a second resolution is a constraint violation, not a race.
type ConflictRepository struct {
	db *sql.DB
	co *Coordinator
}

// NewConflictRepository creates a ConflictRepository on the shared handle.
func NewConflictRepository(db *sql.DB, co *Coordinator) *ConflictRepository {
	return &ConflictRepository{db: db, co: co}
}

// SaveConflict persists a detected conflict.
func (r *ConflictRepository) SaveConflict(ctx context.Context, c *entities.ConflictRecord) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.DetectedAt.IsZero() {
		c.DetectedAt = timeNow().UTC()
	}

	query := `
		INSERT INTO conflicts (
			id, record_id, conflict_type,
			current_value, current_version, current_source, current_at,
			incoming_value, incoming_version, incoming_source, incoming_at,
			similarity, auto_resolvable, suggested_strategy, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.RecordID, c.Type,
		c.Current.Value, c.Current.Version, c.Current.Source, c.Current.Timestamp,
		c.Incoming.Value, c.Incoming.Version, c.Incoming.Source, c.Incoming.Timestamp,
		c.Similarity, c.AutoResolvable, nullableString(string(c.SuggestedStrategy)), c.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("saving conflict: %w", err)
	}
	return nil
}

// FindConflict loads a conflict by id, returning *entities.RecordNotFoundError
// when it does not exist.
func (r *ConflictRepository) FindConflict(ctx context.Context, id string) (*entities.ConflictRecord, error) {
	query := selectConflictColumns + ` WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, &entities.RecordNotFoundError{Table: "conflicts", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("finding conflict: %w", err)
	}
	return c, nil
}

// ListUnresolved returns conflicts without a persisted resolution, newest
// first. A limit of zero or less means no limit.
func (r *ConflictRepository) ListUnresolved(ctx context.Context, limit int) ([]entities.ConflictRecord, error) {
	query := selectConflictColumns + `
		WHERE NOT EXISTS (SELECT 1 FROM resolutions WHERE resolutions.conflict_id = conflicts.id)
		ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing unresolved conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []entities.ConflictRecord
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conflict: %w", err)
		}
		conflicts = append(conflicts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}
	return conflicts, nil
}

// SaveResolution persists a resolution, failing with
// *entities.ResolutionError if the conflict already has one. Check and insert
// run in one transaction so concurrent resolvers cannot both win; the primary
// key catches anything the check misses.
func (r *ConflictRepository) SaveResolution(ctx context.Context, res *entities.Resolution) error {
	if res.ConflictID == "" {
		return fmt.Errorf("conflict id is required")
	}
	if res.ResolvedAt.IsZero() {
		res.ResolvedAt = timeNow().UTC()
	}

	return r.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM resolutions WHERE conflict_id = ?`, res.ConflictID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking existing resolution: %w", err)
		}
		if exists > 0 {
			return &entities.ResolutionError{ConflictID: res.ConflictID, Reason: "already resolved"}
		}

		query := `
			INSERT INTO resolutions (conflict_id, strategy, resolved_value, resolved_version, resolved_by, automatic, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			res.ConflictID, res.Strategy, res.ResolvedValue, res.ResolvedVersion,
			res.ResolvedBy, res.Automatic, res.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("saving resolution: %w", err)
		}
		return nil
	})
}

// FindResolution loads the resolution for a conflict, (nil, nil) when the
// conflict is still open.
func (r *ConflictRepository) FindResolution(ctx context.Context, conflictID string) (*entities.Resolution, error) {
	query := `SELECT conflict_id, strategy, resolved_value, resolved_version, resolved_by, automatic, resolved_at
		FROM resolutions WHERE conflict_id = ?`

	var res entities.Resolution
	err := r.db.QueryRowContext(ctx, query, conflictID).Scan(
		&res.ConflictID, &res.Strategy, &res.ResolvedValue, &res.ResolvedVersion,
		&res.ResolvedBy, &res.Automatic, &res.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding resolution: %w", err)
	}
	return &res, nil
}

// ConflictStats aggregates conflict counts by type and resolution counts by
// strategy for reporting.
func (r *ConflictRepository) ConflictStats(ctx context.Context) (ports.ConflictStats, error) {
	stats := ports.ConflictStats{
		ByType:     make(map[entities.ConflictType]int),
		ByStrategy: make(map[entities.Strategy]int),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT conflict_type, COUNT(*) FROM conflicts GROUP BY conflict_type`)
	if err != nil {
		return stats, fmt.Errorf("counting conflicts by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return stats, fmt.Errorf("scanning conflict counts: %w", err)
		}
		stats.ByType[entities.ConflictType(t)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterating conflict counts: %w", err)
	}

	strategyRows, err := r.db.QueryContext(ctx,
		`SELECT strategy, COUNT(*), SUM(automatic) FROM resolutions GROUP BY strategy`)
	if err != nil {
		return stats, fmt.Errorf("counting resolutions by strategy: %w", err)
	}
	defer strategyRows.Close()
	for strategyRows.Next() {
		var s string
		var count, automatic int
		if err := strategyRows.Scan(&s, &count, &automatic); err != nil {
			return stats, fmt.Errorf("scanning resolution counts: %w", err)
		}
		stats.ByStrategy[entities.Strategy(s)] = count
		stats.Resolved += count
		stats.Automatic += automatic
	}
	if err := strategyRows.Err(); err != nil {
		return stats, fmt.Errorf("iterating resolution counts: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conflicts`).Scan(&total); err != nil {
		return stats, fmt.Errorf("counting conflicts: %w", err)
	}
	stats.Unresolved = total - stats.Resolved
	return stats, nil
}

const selectConflictColumns = `SELECT id, record_id, conflict_type,
	current_value, current_version, current_source, current_at,
	incoming_value, incoming_version, incoming_source, incoming_at,
	similarity, auto_resolvable, suggested_strategy, detected_at
	FROM conflicts`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*entities.ConflictRecord, error) {
	var c entities.ConflictRecord
	var suggested sql.NullString
	err := row.Scan(
		&c.ID, &c.RecordID, &c.Type,
		&c.Current.Value, &c.Current.Version, &c.Current.Source, &c.Current.Timestamp,
		&c.Incoming.Value, &c.Incoming.Version, &c.Incoming.Source, &c.Incoming.Timestamp,
		&c.Similarity, &c.AutoResolvable, &suggested, &c.DetectedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SuggestedStrategy = entities.Strategy(suggested.String)
	return &c, nil
}
