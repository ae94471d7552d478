package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-recon/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalystRepository(db *sql.DB, d Dialect) *AnalystRepository {
	return &AnalystRepository{db: db, d: d}
}

// Save inserts an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *analyst.Analysis) error {
	q := r.d.Rebind(`
INSERT INTO recon_analyses (id, scan_id, model, result, created_at)
VALUES (?,?,?,?,?)`)

	result := a.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, string(a.ID), a.ScanID, a.Model, result, dbTime(created))
	return err
}

// LatestByScan returns nil, nil when the scan has no analysis yet.
func (r *AnalystRepository) LatestByScan(ctx context.Context, scanID string) (*analyst.Analysis, error) {
	q := r.d.Rebind(`
SELECT id, scan_id, model, result, created_at
FROM recon_analyses
WHERE scan_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`)

	var a analyst.Analysis
	var id string
	var created any
	err := r.db.QueryRowContext(ctx, q, scanID).Scan(&id, &a.ScanID, &a.Model, &a.Result, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ID = analyst.AnalysisID(id)
	if a.CreatedAt, _, err = toTime(created); err != nil {
		return nil, err
	}
	return &a, nil
}
