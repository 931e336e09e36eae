package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single connection: the recorder and the HTTP handlers write concurrently.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneFlights removes finished flights (and their samples) started before the cutoff.
// Active flights are never pruned. It returns the number of flights removed.
func (d *DB) PruneFlights(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	const stale = `SELECT id FROM flights WHERE status != 'active' AND started_at < ?`

	if _, err := d.Exec("DELETE FROM flight_samples WHERE flight_id IN ("+stale+")", deadline); err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	res, err := d.Exec("DELETE FROM flights WHERE id IN ("+stale+")", deadline)
	if err != nil {
		return 0, fmt.Errorf("failed to prune flights: %w", err)
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS waypoints (
			code TEXT PRIMARY KEY,
			name TEXT,
			category TEXT,
			lat REAL,
			lon REAL,
			elevation REAL DEFAULT 0,
			h3_cell TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_waypoints_h3 ON waypoints(h3_cell);`,
		`CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			origin TEXT,
			destination TEXT,
			route TEXT,
			points_per_leg INTEGER,
			trajectory BLOB,
			status TEXT,
			started_at DATETIME,
			completed_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS flight_samples (
			flight_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			elapsed_ms INTEGER,
			lat REAL,
			lon REAL,
			altitude REAL,
			speed REAL,
			heading REAL,
			vertical_speed REAL,
			stage TEXT,
			active_waypoint TEXT,
			PRIMARY KEY (flight_id, step)
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: add elevation to databases created before it existed
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('waypoints') WHERE name='elevation'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE waypoints ADD COLUMN elevation REAL DEFAULT 0"); err != nil {
			return fmt.Errorf("failed to add elevation column: %w", err)
		}
	}

	return nil
}
