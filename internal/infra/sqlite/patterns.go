package sqlite

import (
	"database/sql"
	"math"
	"time"
)

// ─── Pattern & Prediction Archive Operations ────────────────────────────────

// Pattern strength bounds. Values outside the storable range are
// clamped; non-finite values fall back to the neutral default.
const (
	MinStrength     = 0.0
	MaxStrength     = 99.99
	DefaultStrength = 50.0
)

// ClampStrength normalizes a pattern strength for storage.
func ClampStrength(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultStrength
	}
	if v < MinStrength {
		return MinStrength
	}
	if v > MaxStrength {
		return MaxStrength
	}
	return v
}

// UpsertPattern stores one analyzer-derived pattern. kind names the
// analyzer ("pair", "finale", "decade"), payload identifies the
// pattern within it.
func (db *DB) UpsertPattern(drawTypeID int64, kind, payload string, strength float64) error {
	_, err := db.db.Exec(`
		INSERT INTO patterns (draw_type_id, kind, payload, strength, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(draw_type_id, kind, payload) DO UPDATE SET
			strength   = excluded.strength,
			updated_at = datetime('now')
	`, drawTypeID, kind, payload, ClampStrength(strength))
	return err
}

// PatternStrength reads back a stored strength; ok is false when the
// pattern was never stored.
func (db *DB) PatternStrength(drawTypeID int64, kind, payload string) (float64, bool, error) {
	var strength float64
	err := db.db.QueryRow(`
		SELECT strength FROM patterns
		WHERE draw_type_id = ? AND kind = ? AND payload = ?
	`, drawTypeID, kind, payload).Scan(&strength)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return strength, true, nil
}

// ArchivePrediction stores a served prediction for offline analysis.
// The operational log lives elsewhere; this table only accumulates.
func (db *DB) ArchivePrediction(drawTypeID int64, dayOfWeek int, numbers string, confidence float64, machineNumbers, hybridNumbers string, at time.Time) error {
	_, err := db.db.Exec(`
		INSERT INTO predictions (draw_type_id, day_of_week, numbers, confidence, machine_numbers, hybrid_numbers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nullableID(drawTypeID), dayOfWeek, numbers, confidence,
		nullableText(machineNumbers), nullableText(hybridNumbers), at.Format(time.RFC3339))
	return err
}

// CountArchivedPredictions reports the archive size.
func (db *DB) CountArchivedPredictions() (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
