package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/schema"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// SQLStore is a RunStore over database/sql using SQLite syntax.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and
// applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := NewSQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. The schema is not applied.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the run tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema.Runs(schema.SQLite) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		run     Run
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: parse created_at %q: %w", id, created, err)
	}

	run.Artifacts, err = s.artifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLStore) artifacts(ctx context.Context, runID string) ([]core.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, uri FROM run_artifacts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	out := []core.Artifact{}
	for rows.Next() {
		var a core.Artifact
		if err := rows.Scan(&a.Name, &a.Path, &a.URI); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", runID, err)
	}
	return out, nil
}

func (s *SQLStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	out := make([]Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, nil
}

func (s *SQLStore) PutRun(ctx context.Context, run *Run) (err error) {
	if err := validateRun(run); err != nil {
		return err
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		run.ID, run.Name, created.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM run_artifacts WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear artifacts for %s: %w", run.ID, err)
	}

	for i, a := range run.Artifacts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_artifacts (run_id, position, name, path, uri) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, a.Name, a.Path, a.URI,
		); err != nil {
			return fmt.Errorf("insert artifact %s: %w", a.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
