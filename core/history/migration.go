package history

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	runsMigrationVersion = 1
	runsMigrationName    = "simulation_runs"
)

func migrate(db *sql.DB) error {
	if err := ensureSchemaVersionTable(db); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	applied, err := isApplied(db, runsMigrationVersion)
	if err != nil {
		return fmt.Errorf("check if applied: %w", err)
	}
	if applied {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(tx); err != nil {
		return err
	}
	if err := recordMigration(tx, runsMigrationVersion, runsMigrationName); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func isApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func createTables(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			num_arms INTEGER NOT NULL,
			probabilities TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			moving_average_window INTEGER NOT NULL,
			seed TEXT,
			total_reward INTEGER NOT NULL,
			final_moving_average REAL
		)`,
		`CREATE TABLE IF NOT EXISTS run_arms (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			arm INTEGER NOT NULL,
			probability REAL NOT NULL,
			trials INTEGER NOT NULL,
			successes INTEGER NOT NULL,
			alpha REAL NOT NULL,
			beta REAL NOT NULL,
			PRIMARY KEY (run_id, arm)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func recordMigration(tx *sql.Tx, version int, name string) error {
	_, err := tx.Exec(
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		version,
		name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}
