// Package sqlite is the durable store of the prediction engine: the
// draw archive, the draw-type catalog, per-number frequency counters,
// brain memory blobs, archived predictions, and stored patterns.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle. All operations go through prepared
// one-shot statements; the handle is safe for concurrent use.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database under dir and applies the schema
// migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "drawsense.db")
	handle, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := &DB{db: handle, path: path}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying handle.
func (db *DB) Close() error {
	return db.db.Close()
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements. Each string is a single
// SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Draw type catalog
		`CREATE TABLE IF NOT EXISTS draw_types (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			name     TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL DEFAULT ''
		)`,

		// Draw archive. Machine numbers are nullable as a whole group.
		`CREATE TABLE IF NOT EXISTS draws (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			draw_type_id     INTEGER NOT NULL REFERENCES draw_types(id),
			draw_date        TEXT NOT NULL,
			day_of_week      INTEGER NOT NULL DEFAULT 0,
			week_of_year     INTEGER NOT NULL DEFAULT 0,
			month_year       TEXT NOT NULL DEFAULT '',
			winning_number_1 INTEGER NOT NULL CHECK (winning_number_1 BETWEEN 1 AND 90),
			winning_number_2 INTEGER NOT NULL CHECK (winning_number_2 BETWEEN 1 AND 90),
			winning_number_3 INTEGER NOT NULL CHECK (winning_number_3 BETWEEN 1 AND 90),
			winning_number_4 INTEGER NOT NULL CHECK (winning_number_4 BETWEEN 1 AND 90),
			winning_number_5 INTEGER NOT NULL CHECK (winning_number_5 BETWEEN 1 AND 90),
			machine_number_1 INTEGER CHECK (machine_number_1 BETWEEN 1 AND 90),
			machine_number_2 INTEGER CHECK (machine_number_2 BETWEEN 1 AND 90),
			machine_number_3 INTEGER CHECK (machine_number_3 BETWEEN 1 AND 90),
			machine_number_4 INTEGER CHECK (machine_number_4 BETWEEN 1 AND 90),
			machine_number_5 INTEGER CHECK (machine_number_5 BETWEEN 1 AND 90),
			raw_winning      TEXT NOT NULL DEFAULT '',
			raw_machine      TEXT,
			UNIQUE(draw_type_id, draw_date, raw_winning)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draws_type_date ON draws(draw_type_id, draw_date)`,
		`CREATE INDEX IF NOT EXISTS idx_draws_date ON draws(draw_date)`,

		// Per-number frequency counters, maintained by trigger.
		`CREATE TABLE IF NOT EXISTS number_frequency (
			draw_type_id     INTEGER NOT NULL,
			number           INTEGER NOT NULL CHECK (number BETWEEN 1 AND 90),
			total_count      INTEGER NOT NULL DEFAULT 0,
			position_1_count INTEGER NOT NULL DEFAULT 0,
			position_2_count INTEGER NOT NULL DEFAULT 0,
			position_3_count INTEGER NOT NULL DEFAULT 0,
			position_4_count INTEGER NOT NULL DEFAULT 0,
			position_5_count INTEGER NOT NULL DEFAULT 0,
			last_seen        TEXT,
			UNIQUE(draw_type_id, number)
		)`,
		`CREATE TRIGGER IF NOT EXISTS trg_draws_frequency
			AFTER INSERT ON draws
		BEGIN
			INSERT INTO number_frequency (draw_type_id, number, total_count, position_1_count, last_seen)
			VALUES (NEW.draw_type_id, NEW.winning_number_1, 1, 1, NEW.draw_date)
			ON CONFLICT(draw_type_id, number) DO UPDATE SET
				total_count = total_count + 1,
				position_1_count = position_1_count + 1,
				last_seen = NEW.draw_date;
			INSERT INTO number_frequency (draw_type_id, number, total_count, position_2_count, last_seen)
			VALUES (NEW.draw_type_id, NEW.winning_number_2, 1, 1, NEW.draw_date)
			ON CONFLICT(draw_type_id, number) DO UPDATE SET
				total_count = total_count + 1,
				position_2_count = position_2_count + 1,
				last_seen = NEW.draw_date;
			INSERT INTO number_frequency (draw_type_id, number, total_count, position_3_count, last_seen)
			VALUES (NEW.draw_type_id, NEW.winning_number_3, 1, 1, NEW.draw_date)
			ON CONFLICT(draw_type_id, number) DO UPDATE SET
				total_count = total_count + 1,
				position_3_count = position_3_count + 1,
				last_seen = NEW.draw_date;
			INSERT INTO number_frequency (draw_type_id, number, total_count, position_4_count, last_seen)
			VALUES (NEW.draw_type_id, NEW.winning_number_4, 1, 1, NEW.draw_date)
			ON CONFLICT(draw_type_id, number) DO UPDATE SET
				total_count = total_count + 1,
				position_4_count = position_4_count + 1,
				last_seen = NEW.draw_date;
			INSERT INTO number_frequency (draw_type_id, number, total_count, position_5_count, last_seen)
			VALUES (NEW.draw_type_id, NEW.winning_number_5, 1, 1, NEW.draw_date)
			ON CONFLICT(draw_type_id, number) DO UPDATE SET
				total_count = total_count + 1,
				position_5_count = position_5_count + 1,
				last_seen = NEW.draw_date;
		END`,

		// Brain memory blobs, one per stream.
		`CREATE TABLE IF NOT EXISTS ai_memory (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Served predictions, archival only.
		`CREATE TABLE IF NOT EXISTS predictions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			draw_type_id    INTEGER,
			day_of_week     INTEGER,
			numbers         TEXT NOT NULL,
			confidence      REAL NOT NULL DEFAULT 0,
			machine_numbers TEXT,
			hybrid_numbers  TEXT,
			created_at      TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at)`,

		// Analyzer-derived patterns.
		`CREATE TABLE IF NOT EXISTS patterns (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			draw_type_id INTEGER,
			kind         TEXT NOT NULL,
			payload      TEXT NOT NULL,
			strength     REAL NOT NULL DEFAULT 50 CHECK (strength >= 0 AND strength <= 99.99),
			updated_at   TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(draw_type_id, kind, payload)
		)`,
	}
}
