package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Draw Type Operations ───────────────────────────────────────────────────

// UpsertDrawType inserts a draw type if absent and returns its id.
// Name lookup is case-insensitive.
func (db *DB) UpsertDrawType(name, category string) (int64, error) {
	if id, err := db.FindDrawTypeID(name); err == nil {
		return id, nil
	} else if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := db.db.Exec(`INSERT INTO draw_types (name, category) VALUES (?, ?)`, name, category)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindDrawTypeID resolves a draw type by name, case-insensitively.
func (db *DB) FindDrawTypeID(name string) (int64, error) {
	var id int64
	err := db.db.QueryRow(`SELECT id FROM draw_types WHERE name = ? COLLATE NOCASE`, name).Scan(&id)
	return id, err
}

// ListDrawTypes returns the catalog ordered by id.
func (db *DB) ListDrawTypes() ([]domain.DrawType, error) {
	rows, err := db.db.Query(`SELECT id, name, category FROM draw_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.DrawType
	for rows.Next() {
		var dt domain.DrawType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Category); err != nil {
			return nil, err
		}
		types = append(types, dt)
	}
	return types, rows.Err()
}

// ─── Draw Operations ────────────────────────────────────────────────────────

// InsertDraw archives one draw. The unique constraint makes re-scraped
// draws idempotent: a duplicate insert reports inserted=false. Machine
// numbers are stored only when the full set of five is present.
func (db *DB) InsertDraw(d domain.Draw) (id int64, inserted bool, err error) {
	if err := domain.ValidateSet(d.Winning); err != nil {
		return 0, false, err
	}
	machine := make([]interface{}, domain.DrawSize)
	rawMachine := sql.NullString{}
	if d.HasMachine() {
		if err := domain.ValidateSet(d.Machine); err != nil {
			return 0, false, err
		}
		for i, n := range d.Machine {
			machine[i] = n
		}
		rawMachine = sql.NullString{String: joinNumbers(d.Machine), Valid: true}
	}

	res, err := db.db.Exec(`
		INSERT OR IGNORE INTO draws (
			draw_type_id, draw_date, day_of_week, week_of_year, month_year,
			winning_number_1, winning_number_2, winning_number_3, winning_number_4, winning_number_5,
			machine_number_1, machine_number_2, machine_number_3, machine_number_4, machine_number_5,
			raw_winning, raw_machine
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.DrawTypeID, d.Date.Format(time.RFC3339), d.DayOfWeek, weekOfYear(d.Date), d.Date.Format("2006-01"),
		d.Winning[0], d.Winning[1], d.Winning[2], d.Winning[3], d.Winning[4],
		machine[0], machine[1], machine[2], machine[3], machine[4],
		joinNumbers(d.Winning), rawMachine,
	)
	if err != nil {
		return 0, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err = res.LastInsertId()
	return id, true, err
}

// RecentDraws returns up to limit most recent draws across all types,
// in chronological order (oldest first).
func (db *DB) RecentDraws(limit int) ([]domain.Draw, error) {
	rows, err := db.db.Query(`
		SELECT `+drawColumns+` FROM draws
		ORDER BY draw_date DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	draws, err := scanDraws(rows)
	if err != nil {
		return nil, err
	}
	reverse(draws)
	return draws, nil
}

// DrawsByType returns the full chronological history for one type.
func (db *DB) DrawsByType(drawTypeID int64) ([]domain.Draw, error) {
	rows, err := db.db.Query(`
		SELECT `+drawColumns+` FROM draws
		WHERE draw_type_id = ?
		ORDER BY draw_date ASC, id ASC
	`, drawTypeID)
	if err != nil {
		return nil, err
	}
	return scanDraws(rows)
}

// CountDraws reports the archive size.
func (db *DB) CountDraws() (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM draws`).Scan(&n)
	return n, err
}

// LatestDrawDate returns the newest archived draw date, zero when the
// archive is empty.
func (db *DB) LatestDrawDate() (time.Time, error) {
	var dateStr sql.NullString
	err := db.db.QueryRow(`SELECT MAX(draw_date) FROM draws`).Scan(&dateStr)
	if err != nil || !dateStr.Valid {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, dateStr.String)
}

// NumberFrequency reads the trigger-maintained counter for one number.
func (db *DB) NumberFrequency(drawTypeID int64, number int) (total int, lastSeen time.Time, err error) {
	var seenStr sql.NullString
	err = db.db.QueryRow(`
		SELECT total_count, last_seen FROM number_frequency
		WHERE draw_type_id = ? AND number = ?
	`, drawTypeID, number).Scan(&total, &seenStr)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return
	}
	if seenStr.Valid {
		lastSeen, _ = time.Parse(time.RFC3339, seenStr.String)
	}
	return
}

// ─── Row helpers ────────────────────────────────────────────────────────────

const drawColumns = `id, draw_type_id, draw_date, day_of_week,
	winning_number_1, winning_number_2, winning_number_3, winning_number_4, winning_number_5,
	machine_number_1, machine_number_2, machine_number_3, machine_number_4, machine_number_5`

func scanDraws(rows *sql.Rows) ([]domain.Draw, error) {
	defer rows.Close()

	var draws []domain.Draw
	for rows.Next() {
		var (
			d       domain.Draw
			dateStr string
			w       [domain.DrawSize]int
			m       [domain.DrawSize]sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.DrawTypeID, &dateStr, &d.DayOfWeek,
			&w[0], &w[1], &w[2], &w[3], &w[4],
			&m[0], &m[1], &m[2], &m[3], &m[4]); err != nil {
			return nil, err
		}
		d.Date, _ = time.Parse(time.RFC3339, dateStr)
		d.Winning = w[:]
		complete := true
		for _, v := range m {
			if !v.Valid {
				complete = false
				break
			}
		}
		if complete {
			machine := make([]int, domain.DrawSize)
			for i, v := range m {
				machine[i] = int(v.Int64)
			}
			d.Machine = machine
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, "-")
}

func weekOfYear(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

func reverse(draws []domain.Draw) {
	for i, j := 0, len(draws)-1; i < j; i, j = i+1, j-1 {
		draws[i], draws[j] = draws[j], draws[i]
	}
}
