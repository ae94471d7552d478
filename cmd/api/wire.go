package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/bryanwahyu/automaton-recon/internal/application"
	appai "github.com/bryanwahyu/automaton-recon/internal/application/ai"
	appscans "github.com/bryanwahyu/automaton-recon/internal/application/scans"
	"github.com/bryanwahyu/automaton-recon/internal/config"
	domai "github.com/bryanwahyu/automaton-recon/internal/domain/ai"
	"github.com/bryanwahyu/automaton-recon/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-recon/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-recon/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlite"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlrepo"
	"github.com/bryanwahyu/automaton-recon/internal/infra/executor/process"
	minioStore "github.com/bryanwahyu/automaton-recon/internal/infra/storage"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
	"github.com/bryanwahyu/automaton-recon/internal/middleware"
)

// stores bundles the repositories of one database driver.
type stores struct {
	scans    domain.Repository
	errors   scanerrors.Repository
	analyses analyst.Repository
	health   middleware.HealthChecker
	close    func() error
}

// openStores connects the configured driver and migrates SQL schemas.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	var (
		db  *sql.DB
		d   sqlrepo.Dialect
		err error
	)
	switch cfg.Database.Driver {
	case "memory":
		repo := memory.NewScanRepository()
		return &stores{
			scans:    repo,
			errors:   memory.NewScanErrorRepository(),
			analyses: memory.NewAnalystRepository(),
			health:   repo,
			close:    func() error { return nil },
		}, nil
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		d = mysqlp.Dialect
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		d = postgres.Dialect
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.Database.Path)
		d = sqlite.Dialect
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", d.Name, err)
	}
	if err := sqlrepo.Migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := sqlrepo.NewScanRepository(db, d)
	return &stores{
		scans:    repo,
		errors:   sqlrepo.NewScanErrorRepository(db, d),
		analyses: sqlrepo.NewAnalystRepository(db, d),
		health:   repo,
		close:    db.Close,
	}, nil
}

type app struct {
	cfg     *config.Config
	stores  *stores
	scans   *appscans.Service
	ai      *appai.Service
	metrics *middleware.Metrics
	health  map[string]middleware.HealthChecker
}

// buildApp wires stores, artifact archive, runner, scan and AI services.
func buildApp(ctx context.Context, cfg *config.Config, st *stores) (*app, error) {
	log := logger.Named("wire")
	if err := os.MkdirAll(cfg.Scan.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	a := &app{
		cfg:     cfg,
		stores:  st,
		metrics: middleware.NewMetrics(),
		health:  map[string]middleware.HealthChecker{"store": st.health},
	}

	// nil interface, not a nil *Store, when archiving is off
	var artifacts domain.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		artifacts = store
		a.health["artifacts"] = store
	}

	runner := process.NewRunner(artifacts, cfg.Scan.KeepArtifacts)
	coord := &appscans.Coordinator{Runner: runner, WorkDir: cfg.Scan.WorkDir, Errors: st.errors}
	agg := &appscans.Aggregator{Catalog: cfg.Scan.Tools, Tools: coord, Timeout: cfg.Scan.Timeout}
	a.scans = appscans.NewService(st.scans, agg, application.SystemClock{})
	a.scans.Metrics = a.metrics

	if !cfg.OpenAI.Disabled {
		var client domai.Client = prompt.Heuristic{}
		model := prompt.HeuristicModel
		if cfg.OpenAI.APIKey != "" {
			client = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
			model = cfg.OpenAI.Model
		}
		a.ai = appai.NewService(client, model, st.scans, st.analyses, application.SystemClock{})
		log.Info().Str("model", model).Msg("analysis enabled")
	}

	log.Info().
		Str("driver", cfg.Database.Driver).
		Bool("archive", artifacts != nil).
		Int("tools", len(cfg.Scan.Tools)).
		Dur("scan_timeout", cfg.Scan.Timeout).
		Msg("application wired")
	return a, nil
}
