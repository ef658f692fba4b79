package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// versionedColumns whitelists, per table, which payload columns a conditional
// update may touch. Field names outside the whitelist are rejected rather
// than interpolated into SQL. The version and updated_at columns are managed
// by the lock itself and never accepted from callers.
var versionedColumns = map[string]map[string]bool{
	"translations": {
		"text":   true,
		"source": true,
		"status": true,
	},
}

// VersionLock implements ports.VersionLock: optimistic concurrency control
// through single-statement conditional updates. Version numbers are
// per-record; there is no global counter.
type VersionLock struct {
	db *sql.DB
	co *Coordinator
}

// NewVersionLock creates a VersionLock routing multi-step writes through co.
func NewVersionLock(db *sql.DB, co *Coordinator) *VersionLock {
	return &VersionLock{db: db, co: co}
}

// CheckVersion reads the current version and returns it if it equals
// expected. A missing row yields *entities.RecordNotFoundError, a mismatch
// *entities.VersionConflictError carrying both versions.
func (v *VersionLock) CheckVersion(ctx context.Context, table, id string, expected int64) (int64, error) {
	if err := validTable(table); err != nil {
		return 0, err
	}
	actual, err := readVersion(ctx, v.db, table, id)
	if err != nil {
		return 0, err
	}
	if actual != expected {
		return 0, &entities.VersionConflictError{Table: table, ID: id, Expected: expected, Actual: actual}
	}
	return actual, nil
}

// UpdateWithVersionCheck performs a single conditional update that writes
// fields, sets version to expected+1 and stamps updated_at, all in one
// statement so no race window opens between check and write. A change log
// entry is appended in the same transaction. Returns the new version.
func (v *VersionLock) UpdateWithVersionCheck(ctx context.Context, table, id string, expected int64, fields map[string]any) (int64, error) {
	if err := validTable(table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("no fields to update on %s/%s", table, id)
	}

	setClause, args, err := buildSetClause(table, fields)
	if err != nil {
		return 0, err
	}

	newVersion := expected + 1
	query := fmt.Sprintf(
		"UPDATE %s SET %s, version = ?, updated_at = ? WHERE id = ? AND version = ?",
		table, setClause,
	)
	args = append(args, newVersion, timeNow().UTC(), id, expected)

	err = v.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("conditional update on %s/%s: %w", table, id, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if rows == 0 {
			// One follow-up read disambiguates a missing record from a
			// stale expected version.
			actual, err := readVersion(ctx, tx, table, id)
			if err != nil {
				return err
			}
			return &entities.VersionConflictError{Table: table, ID: id, Expected: expected, Actual: actual}
		}
		return appendChangeLog(ctx, tx, table, id, newVersion, fields)
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// IncrementVersion touches a record's version without changing payload, used
// to mark a record as seen or to invalidate derived caches.
func (v *VersionLock) IncrementVersion(ctx context.Context, table, id string) (int64, error) {
	if err := validTable(table); err != nil {
		return 0, err
	}

	var newVersion int64
	err := v.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		query := fmt.Sprintf("UPDATE %s SET version = version + 1, updated_at = ? WHERE id = ?", table)
		res, err := tx.ExecContext(ctx, query, timeNow().UTC(), id)
		if err != nil {
			return fmt.Errorf("incrementing version on %s/%s: %w", table, id, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if rows == 0 {
			return &entities.RecordNotFoundError{Table: table, ID: id}
		}
		newVersion, err = readVersion(ctx, tx, table, id)
		if err != nil {
			return err
		}
		return appendChangeLog(ctx, tx, table, id, newVersion, nil)
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// BatchUpdateWithVersionCheck applies the updates atomically in one
// transaction: if any update fails its version check, the whole batch rolls
// back and the first failure is returned.
func (v *VersionLock) BatchUpdateWithVersionCheck(ctx context.Context, table string, updates []ports.VersionedUpdate) error {
	if err := validTable(table); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	return v.co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		for _, u := range updates {
			setClause, args, err := buildSetClause(table, u.Fields)
			if err != nil {
				return err
			}
			newVersion := u.ExpectedVersion + 1
			query := fmt.Sprintf(
				"UPDATE %s SET %s, version = ?, updated_at = ? WHERE id = ? AND version = ?",
				table, setClause,
			)
			args = append(args, newVersion, timeNow().UTC(), u.ID, u.ExpectedVersion)

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("conditional update on %s/%s: %w", table, u.ID, err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reading rows affected: %w", err)
			}
			if rows == 0 {
				actual, err := readVersion(ctx, tx, table, u.ID)
				if err != nil {
					return err
				}
				return &entities.VersionConflictError{Table: table, ID: u.ID, Expected: u.ExpectedVersion, Actual: actual}
			}
			if err := appendChangeLog(ctx, tx, table, u.ID, newVersion, u.Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasBeenModified reports whether the record's version exceeds since. A
// non-destructive check callers use before committing an edit.
func (v *VersionLock) HasBeenModified(ctx context.Context, table, id string, since int64) (bool, error) {
	if err := validTable(table); err != nil {
		return false, err
	}
	actual, err := readVersion(ctx, v.db, table, id)
	if err != nil {
		return false, err
	}
	return actual > since, nil
}

// validTable rejects tables that don't participate in optimistic locking.
func validTable(table string) error {
	if _, ok := versionedColumns[table]; !ok {
		return fmt.Errorf("table %q is not version locked", table)
	}
	return nil
}

// buildSetClause turns a fields map into a deterministic SET clause,
// rejecting columns outside the table's whitelist.
func buildSetClause(table string, fields map[string]any) (string, []any, error) {
	allowed := versionedColumns[table]

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !allowed[name] {
			return "", nil, fmt.Errorf("column %q is not updatable on %s", name, table)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	clause := ""
	args := make([]any, 0, len(names))
	for i, name := range names {
		if i > 0 {
			clause += ", "
		}
		clause += name + " = ?"
		args = append(args, fields[name])
	}
	return clause, args, nil
}

// readVersion reads a record's current version with the given executor,
// whether that is the bare handle or an open transaction.
func readVersion(ctx context.Context, tx DBTX, table, id string) (int64, error) {
	query := fmt.Sprintf("SELECT version FROM %s WHERE id = ?", table)
	var version int64
	err := tx.QueryRowContext(ctx, query, id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, &entities.RecordNotFoundError{Table: table, ID: id}
	}
	if err != nil {
		return 0, fmt.Errorf("reading version of %s/%s: %w", table, id, err)
	}
	return version, nil
}

// appendChangeLog records a successful conditional update for audit.
func appendChangeLog(ctx context.Context, tx DBTX, table, id string, version int64, fields map[string]any) error {
	var fieldsJSON sql.NullString
	if len(fields) > 0 {
		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshaling change log fields: %w", err)
		}
		fieldsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO change_log (table_name, record_id, version, fields, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, table, id, version, fieldsJSON, timeNow().UTC()); err != nil {
		return fmt.Errorf("appending change log: %w", err)
	}
	return nil
}
