package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvcard/internal/config"
	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a RunStore backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects using cfg's DSN and pool settings, verifies the
// connection and applies the schema.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate creates the run tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema.Runs(schema.Postgres) {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Name, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT name, path, uri FROM run_artifacts WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", id, err)
	}
	run.Artifacts, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Artifact, error) {
		var a core.Artifact
		err := row.Scan(&a.Name, &a.Path, &a.URI)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan artifacts for %s: %w", id, err)
	}
	return &run, nil
}

func (p *Postgres) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	out := make([]Run, 0, len(ids))
	for _, id := range ids {
		run, err := p.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, nil
}

func (p *Postgres) PutRun(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO runs (id, name, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, created_at = EXCLUDED.created_at`,
			run.ID, run.Name, created.UTC(),
		); err != nil {
			return fmt.Errorf("upsert run %s: %w", run.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM run_artifacts WHERE run_id = $1`, run.ID); err != nil {
			return fmt.Errorf("clear artifacts for %s: %w", run.ID, err)
		}

		batch := &pgx.Batch{}
		for i, a := range run.Artifacts {
			batch.Queue(
				`INSERT INTO run_artifacts (run_id, position, name, path, uri) VALUES ($1, $2, $3, $4, $5)`,
				run.ID, i, a.Name, a.Path, a.URI,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert artifacts for %s: %w", run.ID, err)
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
