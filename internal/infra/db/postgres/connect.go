package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlrepo"
)

var Dialect = sqlrepo.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS recon_scans (
  scan_id      TEXT        PRIMARY KEY,
  domain       TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL,
  status       TEXT        NOT NULL,
  result       JSONB       NULL,
  completed_at TIMESTAMPTZ NULL,
  summary      TEXT        NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_scans_created ON recon_scans (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS recon_scan_errors (
  id         BIGSERIAL   PRIMARY KEY,
  scan_id    TEXT        NOT NULL,
  tool       TEXT        NOT NULL,
  technique  TEXT        NOT NULL,
  chunk_id   TEXT        NOT NULL,
  outcome    TEXT        NOT NULL,
  message    TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_scan_errors_scan ON recon_scan_errors (scan_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS recon_analyses (
  id         TEXT        PRIMARY KEY,
  scan_id    TEXT        NOT NULL,
  model      TEXT        NOT NULL,
  result     TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_analyses_scan ON recon_analyses (scan_id, created_at DESC)`,
	},
}

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
