// Package store persists schema definitions, the active schema pointer and
// migration run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"schema-engine/internal/migration"
	"schema-engine/internal/schema"
)

// ErrNotFound is returned when a schema or the active pointer does not exist.
var ErrNotFound = errors.New("not found")

const timeLayout = time.RFC3339Nano

// Store wraps a SQLite database connection.
type Store struct {
	conn *sql.DB
	Path string
	now  func() time.Time
}

// Open opens (creating if needed) a store at path with WAL mode and foreign keys enabled.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{conn: conn, Path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SchemaSummary describes one stored schema version.
type SchemaSummary struct {
	ID         string    `json:"id"`
	Version    string    `json:"version"`
	FieldCount int       `json:"fieldCount"`
	SavedAt    time.Time `json:"savedAt"`
}

// SaveSchema stores def under its id and version, replacing an existing
// copy of the same version. A replaced copy counts as the newest save.
func (s *Store) SaveSchema(ctx context.Context, def *schema.SchemaDefinition) error {
	if def == nil || def.ID == "" || def.Version == "" {
		return errors.New("schema id and version are required")
	}

	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding schema %s: %w", def.Ref(), err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO schemas (id, version, body, field_count, saved_at) VALUES (?, ?, ?, ?, ?)`,
		def.ID, def.Version, string(body), len(def.Fields), s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("saving schema %s: %w", def.Ref(), err)
	}

	return nil
}

// GetSchema returns one schema version.
func (s *Store) GetSchema(ctx context.Context, id, version string) (*schema.SchemaDefinition, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT body FROM schemas WHERE id = ? AND version = ?`, id, version)

	return scanSchema(row, id+"@"+version)
}

// LatestSchema returns the most recently saved version of a schema.
func (s *Store) LatestSchema(ctx context.Context, id string) (*schema.SchemaDefinition, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT body FROM schemas WHERE id = ? ORDER BY seq DESC LIMIT 1`, id)

	return scanSchema(row, id)
}

func scanSchema(row *sql.Row, what string) (*schema.SchemaDefinition, error) {
	var body string

	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("schema %s: %w", what, ErrNotFound)
		}

		return nil, fmt.Errorf("reading schema %s: %w", what, err)
	}

	var def schema.SchemaDefinition
	if err := json.Unmarshal([]byte(body), &def); err != nil {
		return nil, fmt.Errorf("decoding schema %s: %w", what, err)
	}

	return &def, nil
}

// ListSchemas lists every stored schema version, newest first within an id.
func (s *Store) ListSchemas(ctx context.Context) ([]SchemaSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, version, field_count, saved_at FROM schemas ORDER BY id, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()

	out := []SchemaSummary{}

	for rows.Next() {
		var (
			sum     SchemaSummary
			savedAt string
		)

		if err := rows.Scan(&sum.ID, &sum.Version, &sum.FieldCount, &savedAt); err != nil {
			return nil, fmt.Errorf("scanning schema row: %w", err)
		}

		sum.SavedAt, _ = time.Parse(timeLayout, savedAt)
		out = append(out, sum)
	}

	return out, rows.Err()
}

// SetActive points the active schema at id, which must already be stored.
func (s *Store) SetActive(ctx context.Context, id string) error {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM schemas WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("checking schema %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("schema %s: %w", id, ErrNotFound)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO active_schema (slot, schema_id, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET schema_id = excluded.schema_id, updated_at = excluded.updated_at`,
		id, s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("setting active schema: %w", err)
	}

	return nil
}

// ActiveID returns the active schema id.
func (s *Store) ActiveID(ctx context.Context) (string, error) {
	var id string

	err := s.conn.QueryRowContext(ctx, `SELECT schema_id FROM active_schema WHERE slot = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("active schema: %w", ErrNotFound)
	}

	if err != nil {
		return "", fmt.Errorf("reading active schema: %w", err)
	}

	return id, nil
}

// Active returns the latest version of the active schema.
func (s *Store) Active(ctx context.Context) (*schema.SchemaDefinition, error) {
	id, err := s.ActiveID(ctx)
	if err != nil {
		return nil, err
	}

	return s.LatestSchema(ctx, id)
}

// RunSummary is a stored migration run.
type RunSummary struct {
	RunID         string    `json:"runId"`
	FromSchema    string    `json:"fromSchema"`
	SchemaID      string    `json:"schemaId"`
	SchemaVersion string    `json:"schemaVersion"`
	Migrated      int       `json:"migrated"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	Total         int       `json:"total"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// RecordMigrationRun stores the outcome of a batch migration. Reports
// without a run id get one.
func (s *Store) RecordMigrationRun(ctx context.Context, cfg *migration.Config, report *migration.Report) error {
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	from := cfg.FromSchemaID + "@" + cfg.FromVersion

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO migration_runs
			(run_id, from_schema, schema_id, schema_version, migrated, skipped, failed, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, from, report.SchemaID, report.SchemaVersion,
		report.MigratedCount, report.SkippedCount, len(report.Failures), report.TotalCount,
		report.StartedAt.UTC().Format(timeLayout), report.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("recording migration run %s: %w", report.RunID, err)
	}

	return nil
}

// MigrationRuns lists the runs that migrated into schemaID, newest first.
func (s *Store) MigrationRuns(ctx context.Context, schemaID string) ([]RunSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, from_schema, schema_id, schema_version, migrated, skipped, failed, total, started_at, finished_at
		FROM migration_runs WHERE schema_id = ? ORDER BY started_at DESC, run_id`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("listing migration runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}

	for rows.Next() {
		var (
			r                 RunSummary
			started, finished string
		)

		if err := rows.Scan(&r.RunID, &r.FromSchema, &r.SchemaID, &r.SchemaVersion,
			&r.Migrated, &r.Skipped, &r.Failed, &r.Total, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning migration run: %w", err)
		}

		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, r)
	}

	return out, rows.Err()
}
