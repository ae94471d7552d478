package sqlrepo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	db *sql.DB
	d  Dialect
}

func NewScanErrorRepository(db *sql.DB, d Dialect) *ScanErrorRepository {
	return &ScanErrorRepository{db: db, d: d}
}

func (r *ScanErrorRepository) Save(ctx context.Context, e *scanerrors.ScanError) error {
	q := r.d.Rebind(`
INSERT INTO recon_scan_errors
  (scan_id, tool, technique, chunk_id, outcome, message, created_at)
VALUES (?,?,?,?,?,?,?)`)

	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, e.ScanID, e.Tool, e.Technique, e.ChunkID, e.Outcome, msg, dbTime(created))
	return err
}

func (r *ScanErrorRepository) ListByScan(ctx context.Context, scanID string, limit int) ([]*scanerrors.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.d.Rebind(`
SELECT id, scan_id, tool, technique, chunk_id, outcome, message, created_at
FROM recon_scan_errors
WHERE scan_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, scanID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*scanerrors.ScanError
	for rows.Next() {
		var e scanerrors.ScanError
		var created any
		if err := rows.Scan(&e.ID, &e.ScanID, &e.Tool, &e.Technique, &e.ChunkID, &e.Outcome, &e.Message, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, _, err = toTime(created); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
