package sqlite

import (
	"context"
	"database/sql"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Brain Memory Operations ────────────────────────────────────────────────

// LoadMemory reads the serialized brain blob for a stream. A missing
// row yields an empty blob and no error.
func (db *DB) LoadMemory(ctx context.Context, stream domain.Stream) ([]byte, error) {
	var data string
	err := db.db.QueryRowContext(ctx, `SELECT data FROM ai_memory WHERE id = ?`, string(stream)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// SaveMemory writes a stream's brain blob.
func (db *DB) SaveMemory(ctx context.Context, stream domain.Stream, blob []byte) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO ai_memory (id, data, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			data       = excluded.data,
			updated_at = datetime('now')
	`, string(stream), string(blob))
	return err
}
