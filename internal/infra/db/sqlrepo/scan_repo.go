package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

type ScanRepository struct {
	db *sql.DB
	d  Dialect
}

func NewScanRepository(db *sql.DB, d Dialect) *ScanRepository {
	return &ScanRepository{db: db, d: d}
}

const scanColumns = `scan_id, domain, created_at, status, result, completed_at, summary`

func (r *ScanRepository) Create(ctx context.Context, s *domain.Scan) error {
	q := r.d.Rebind(`
INSERT INTO recon_scans (` + scanColumns + `)
VALUES (?,?,?,?,?,?,?)`)

	result, err := encodeResult(s.Result)
	if err != nil {
		return err
	}
	var completed any
	if s.CompletedAt != nil {
		completed = dbTime(*s.CompletedAt)
	}
	_, err = r.db.ExecContext(ctx, q,
		string(s.ID), s.Domain, dbTime(s.CreatedAt), string(s.Status),
		result, completed, s.Summary,
	)
	return err
}

// Update only touches records that are still in progress, so a terminal
// record can never be overwritten even by a concurrent writer.
func (r *ScanRepository) Update(ctx context.Context, id domain.ScanID, p domain.Patch) error {
	log := logger.C(ctx)
	p = p.Normalize(time.Now())
	if p.Empty() {
		log.Warn().Str("scan_id", string(id)).Msg("update skipped: empty patch")
		return nil
	}

	var sets []string
	var args []any
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, dbTime(*p.CompletedAt))
	}
	if p.Result != nil {
		enc, err := encodeResult(p.Result)
		if err != nil {
			return err
		}
		sets = append(sets, "result = ?")
		args = append(args, enc)
	}
	if p.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *p.Summary)
	}
	args = append(args, string(id), string(domain.StatusInProgress))

	q := r.d.Rebind(`UPDATE recon_scans SET ` + strings.Join(sets, ", ") + ` WHERE scan_id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update scan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Warn().Str("scan_id", string(id)).Msg("update skipped: unknown or terminal scan")
	}
	return nil
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	q := r.d.Rebind(`SELECT ` + scanColumns + ` FROM recon_scans WHERE scan_id = ?`)
	s, err := scanRow(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// List returns every scan, newest first.
func (r *ScanRepository) List(ctx context.Context) ([]*domain.Scan, error) {
	q := `SELECT ` + scanColumns + ` FROM recon_scans ORDER BY created_at DESC, scan_id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Check implements middleware.HealthChecker.
func (r *ScanRepository) Check(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.Scan, error) {
	var (
		s                  domain.Scan
		id, status         string
		result             sql.NullString
		created, completed any
	)
	if err := row.Scan(&id, &s.Domain, &created, &status, &result, &completed, &s.Summary); err != nil {
		return nil, err
	}
	s.ID = domain.ScanID(id)
	s.Status = domain.Status(status)

	t, _, err := toTime(created)
	if err != nil {
		return nil, fmt.Errorf("scan %s created_at: %w", id, err)
	}
	s.CreatedAt = t
	if t, ok, err := toTime(completed); err != nil {
		return nil, fmt.Errorf("scan %s completed_at: %w", id, err)
	} else if ok {
		s.CompletedAt = &t
	}
	if result.Valid && result.String != "" {
		var res domain.Result
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return nil, fmt.Errorf("scan %s result: %w", id, err)
		}
		s.Result = &res
	}
	return &s, nil
}

func encodeResult(r *domain.Result) (any, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}
