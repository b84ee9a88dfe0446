package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB opens the SQLite database at path (":memory:" for an in-memory one),
// enables WAL mode and foreign keys, and applies the schema.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection and every connection to ":memory:" is a
	// different database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// Migrate runs all schema migrations. Statements are idempotent.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS plan_selections (
		plan_id  TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		code     TEXT NOT NULL,
		PRIMARY KEY (plan_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_forced_times (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		code    TEXT NOT NULL,
		year    INTEGER NOT NULL,
		session TEXT NOT NULL CHECK(session IN ('S1','WV','S2','S3')),
		PRIMARY KEY (plan_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_capacities (
		plan_id       TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		year          INTEGER NOT NULL,
		session       TEXT NOT NULL CHECK(session IN ('S1','WV','S2','S3')),
		credit_points INTEGER NOT NULL CHECK(credit_points >= 0),
		PRIMARY KEY (plan_id, year, session)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at)`,
}
