// Package sqlite provides the SQLite implementation of the storage ports:
// the translation store plus the concurrency core (transaction coordinator,
// version lock, reservation manager, conflict store).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.TranslationStore using SQLite and owns the
// shared database handle the concurrency components are built on.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository opens (creating if needed) the SQLite database at cfg.Path.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// DB exposes the underlying handle for building the concurrency components.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Translatable source strings, keyed within a project
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		key TEXT NOT NULL,
		source_text TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(project_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_units_project ON units(project_id);

	-- Current translation per (unit, locale); version column is owned by the
	-- version lock and mutated only through conditional updates
	CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		locale TEXT NOT NULL,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(unit_id, locale)
	);
	CREATE INDEX IF NOT EXISTS idx_translations_locale ON translations(locale);

	-- Work-item leases; rows are never deleted (audit/statistics).
	-- Expiry timestamps are unix seconds so sweeps compare integers.
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		reserved_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		released_at INTEGER,
		reason TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active
		ON reservations(unit_id, scope) WHERE status = 'active';
	CREATE INDEX IF NOT EXISTS idx_reservations_holder ON reservations(holder_id, scope, status);
	CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON reservations(status, expires_at);

	-- Detected conflicts between two observations of the same record
	CREATE TABLE IF NOT EXISTS conflicts (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL,
		conflict_type TEXT NOT NULL,
		current_value TEXT NOT NULL,
		current_version INTEGER NOT NULL,
		current_source TEXT NOT NULL,
		current_at TIMESTAMP NOT NULL,
		incoming_value TEXT NOT NULL,
		incoming_version INTEGER NOT NULL,
		incoming_source TEXT NOT NULL,
		incoming_at TIMESTAMP NOT NULL,
		similarity REAL NOT NULL,
		auto_resolvable INTEGER NOT NULL DEFAULT 0,
		suggested_strategy TEXT,
		detected_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conflicts_record ON conflicts(record_id);
	CREATE INDEX IF NOT EXISTS idx_conflicts_type ON conflicts(conflict_type);

	-- One-shot resolutions; the primary key enforces one per conflict
	CREATE TABLE IF NOT EXISTS resolutions (
		conflict_id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		resolved_value TEXT NOT NULL,
		resolved_version INTEGER NOT NULL,
		resolved_by TEXT NOT NULL,
		automatic INTEGER NOT NULL DEFAULT 0,
		resolved_at TIMESTAMP NOT NULL
	);

	-- Append-only log of every successful conditional update
	CREATE TABLE IF NOT EXISTS change_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		record_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		fields TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_change_log_record ON change_log(table_name, record_id);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveUnit saves or updates a unit, keyed by (project_id, key).
func (r *Repository) SaveUnit(ctx context.Context, unit *entities.Unit) error {
	query := `
		INSERT INTO units (id, project_id, key, source_text, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, key) DO UPDATE SET
			source_text = excluded.source_text,
			notes = excluded.notes
	`
	_, err := r.db.ExecContext(ctx, query,
		unit.ID,
		unit.ProjectID,
		unit.Key,
		unit.SourceText,
		unit.Notes,
		unit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}
	return nil
}

// FindUnit finds a unit by its ID. Returns nil if not found.
func (r *Repository) FindUnit(ctx context.Context, unitID string) (*entities.Unit, error) {
	query := `
		SELECT id, project_id, key, source_text, notes, created_at
		FROM units
		WHERE id = ?
	`
	return r.scanUnitRow(r.db.QueryRowContext(ctx, query, unitID))
}

// FindUnitByKey finds a unit by its key within a project. Returns nil if not found.
func (r *Repository) FindUnitByKey(ctx context.Context, projectID, key string) (*entities.Unit, error) {
	query := `
		SELECT id, project_id, key, source_text, notes, created_at
		FROM units
		WHERE project_id = ? AND key = ?
	`
	return r.scanUnitRow(r.db.QueryRowContext(ctx, query, projectID, key))
}

// ListUnits lists units for a project with pagination, in key order.
func (r *Repository) ListUnits(ctx context.Context, projectID string, limit, offset int) ([]entities.Unit, error) {
	query := `
		SELECT id, project_id, key, source_text, notes, created_at
		FROM units
		WHERE project_id = ?
		ORDER BY key ASC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows, limit)
}

// UnitsMissingTranslation returns units with no translation row for the locale.
func (r *Repository) UnitsMissingTranslation(ctx context.Context, projectID, locale string) ([]entities.Unit, error) {
	query := `
		SELECT u.id, u.project_id, u.key, u.source_text, u.notes, u.created_at
		FROM units u
		LEFT JOIN translations t ON t.unit_id = u.id AND t.locale = ?
		WHERE u.project_id = ? AND t.id IS NULL
		ORDER BY u.key ASC
	`
	rows, err := r.db.QueryContext(ctx, query, locale, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying untranslated units: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows, 16)
}

// CreateTranslation inserts a new translation. The version always starts at 1
// regardless of what the caller set; later mutations go through the version lock.
func (r *Repository) CreateTranslation(ctx context.Context, tr *entities.Translation) error {
	if tr.ID == "" {
		tr.ID = generateUUID()
	}
	now := timeNow().UTC()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = now
	}
	tr.UpdatedAt = tr.CreatedAt
	tr.Version = 1

	query := `
		INSERT INTO translations (id, unit_id, locale, text, source, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		tr.ID,
		tr.UnitID,
		tr.Locale,
		tr.Text,
		string(tr.Source),
		string(tr.Status),
		tr.CreatedAt,
		tr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating translation: %w", err)
	}
	return nil
}

// FindTranslation finds a translation by its ID. Returns nil if not found.
func (r *Repository) FindTranslation(ctx context.Context, id string) (*entities.Translation, error) {
	query := `
		SELECT id, unit_id, locale, text, source, status, version, created_at, updated_at
		FROM translations
		WHERE id = ?
	`
	return r.scanTranslationRow(r.db.QueryRowContext(ctx, query, id))
}

// FindTranslationForUnit finds the translation of a unit in one locale.
// Returns nil if the unit has no translation there yet.
func (r *Repository) FindTranslationForUnit(ctx context.Context, unitID, locale string) (*entities.Translation, error) {
	query := `
		SELECT id, unit_id, locale, text, source, status, version, created_at, updated_at
		FROM translations
		WHERE unit_id = ? AND locale = ?
	`
	return r.scanTranslationRow(r.db.QueryRowContext(ctx, query, unitID, locale))
}

// ListTranslations lists a project's translations for one locale, in unit key order.
func (r *Repository) ListTranslations(ctx context.Context, projectID, locale string) ([]entities.Translation, error) {
	query := `
		SELECT t.id, t.unit_id, t.locale, t.text, t.source, t.status, t.version, t.created_at, t.updated_at
		FROM translations t
		JOIN units u ON u.id = t.unit_id
		WHERE u.project_id = ? AND t.locale = ?
		ORDER BY u.key ASC
	`
	rows, err := r.db.QueryContext(ctx, query, projectID, locale)
	if err != nil {
		return nil, fmt.Errorf("querying translations: %w", err)
	}
	defer rows.Close()

	translations := make([]entities.Translation, 0, 16)
	for rows.Next() {
		var tr entities.Translation
		var source, status string
		if err := rows.Scan(
			&tr.ID,
			&tr.UnitID,
			&tr.Locale,
			&tr.Text,
			&source,
			&status,
			&tr.Version,
			&tr.CreatedAt,
			&tr.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning translation: %w", err)
		}
		tr.Source = entities.TranslationSource(source)
		tr.Status = entities.TranslationStatus(status)
		translations = append(translations, tr)
	}
	return translations, rows.Err()
}

// scanUnitRow scans a single unit row, mapping no-rows to nil.
func (r *Repository) scanUnitRow(row *sql.Row) (*entities.Unit, error) {
	var unit entities.Unit
	var notes sql.NullString
	err := row.Scan(
		&unit.ID,
		&unit.ProjectID,
		&unit.Key,
		&unit.SourceText,
		&notes,
		&unit.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning unit: %w", err)
	}
	unit.Notes = notes.String
	return &unit, nil
}

// scanTranslationRow scans a single translation row, mapping no-rows to nil.
func (r *Repository) scanTranslationRow(row *sql.Row) (*entities.Translation, error) {
	var tr entities.Translation
	var source, status string
	err := row.Scan(
		&tr.ID,
		&tr.UnitID,
		&tr.Locale,
		&tr.Text,
		&source,
		&status,
		&tr.Version,
		&tr.CreatedAt,
		&tr.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning translation: %w", err)
	}
	tr.Source = entities.TranslationSource(source)
	tr.Status = entities.TranslationStatus(status)
	return &tr, nil
}

// scanUnits drains a unit result set.
func scanUnits(rows *sql.Rows, capacityHint int) ([]entities.Unit, error) {
	if capacityHint <= 0 {
		capacityHint = 16
	}
	units := make([]entities.Unit, 0, capacityHint)
	for rows.Next() {
		var unit entities.Unit
		var notes sql.NullString
		if err := rows.Scan(
			&unit.ID,
			&unit.ProjectID,
			&unit.Key,
			&unit.SourceText,
			&notes,
			&unit.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		unit.Notes = notes.String
		units = append(units, unit)
	}
	return units, rows.Err()
}

// inPlaceholders builds a "?, ?, ?" list and matching args for IN clauses.
func inPlaceholders(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
