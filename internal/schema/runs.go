// Package schema holds the run store table definitions for each SQL dialect.
package schema

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Runs returns the statements that create the run tables for d.
// Every statement is idempotent.
func Runs(d Dialect) []string {
	ts := "TEXT"
	if d == Postgres {
		ts = "TIMESTAMPTZ"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at ` + ts + ` NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS run_artifacts (
	run_id   TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT    NOT NULL,
	path     TEXT    NOT NULL DEFAULT '',
	uri      TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, name)
)`,
		`CREATE INDEX IF NOT EXISTS run_artifacts_position ON run_artifacts (run_id, position)`,
	}
}
