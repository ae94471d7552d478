// Package sqlite opens the embedded scan store used when no database server
// is configured.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlrepo"
)

var Dialect = sqlrepo.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS recon_scans (
  scan_id      TEXT PRIMARY KEY,
  domain       TEXT NOT NULL,
  created_at   DATETIME NOT NULL,
  status       TEXT NOT NULL,
  result       TEXT,
  completed_at DATETIME,
  summary      TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_scans_created ON recon_scans (created_at)`,
		`CREATE TABLE IF NOT EXISTS recon_scan_errors (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  scan_id    TEXT NOT NULL,
  tool       TEXT NOT NULL,
  technique  TEXT NOT NULL,
  chunk_id   TEXT NOT NULL,
  outcome    TEXT NOT NULL,
  message    TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_scan_errors_scan ON recon_scan_errors (scan_id)`,
		`CREATE TABLE IF NOT EXISTS recon_analyses (
  id         TEXT PRIMARY KEY,
  scan_id    TEXT NOT NULL,
  model      TEXT NOT NULL,
  result     TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_analyses_scan ON recon_analyses (scan_id)`,
	},
}

// Connect opens (creating if needed) the database file at path.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
