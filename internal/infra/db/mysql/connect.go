package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlrepo"
)

// Dialect for MySQL 8. The DSN must carry parseTime=true.
var Dialect = sqlrepo.Dialect{
	Name: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS recon_scans (
  scan_id      VARCHAR(64)  NOT NULL PRIMARY KEY,
  domain       VARCHAR(253) NOT NULL,
  created_at   DATETIME(6)  NOT NULL,
  status       VARCHAR(16)  NOT NULL,
  result       LONGTEXT     NULL,
  completed_at DATETIME(6)  NULL,
  summary      TEXT         NOT NULL,
  INDEX idx_recon_scans_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS recon_scan_errors (
  id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  scan_id    VARCHAR(64)  NOT NULL,
  tool       VARCHAR(64)  NOT NULL,
  technique  VARCHAR(64)  NOT NULL,
  chunk_id   VARCHAR(255) NOT NULL,
  outcome    VARCHAR(16)  NOT NULL,
  message    TEXT         NOT NULL,
  created_at DATETIME(6)  NOT NULL,
  INDEX idx_recon_scan_errors_scan (scan_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS recon_analyses (
  id         VARCHAR(64) NOT NULL PRIMARY KEY,
  scan_id    VARCHAR(64) NOT NULL,
  model      VARCHAR(64) NOT NULL,
  result     LONGTEXT    NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_recon_analyses_scan (scan_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
