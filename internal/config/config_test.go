package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Scan.Timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", cfg.Scan.Timeout)
	}
	if len(cfg.Scan.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(cfg.Scan.Tools))
	}
}

func TestLoad_OverridesAndCatalog(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/x.db
scan:
  timeout: 2m
  workDir: /tmp/work
  tools:
    - name: harvester
      binary: /usr/bin/theHarvester
      kind: categories
      artifactSuffix: .json
      chunkTimeout: 30s
      maxParallel: 2
      techniques:
        - name: crtsh
          args: ["-d", "{domain}", "-b", "crtsh", "-f", "{output}"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Scan.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", cfg.Scan.Timeout)
	}
	if len(cfg.Scan.Tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(cfg.Scan.Tools))
	}
	tool := cfg.Scan.Tools[0]
	if tool.Kind != scans.PayloadCategories || tool.ChunkTimeout != 30*time.Second || tool.MaxParallel != 2 {
		t.Errorf("unexpected tool: %+v", tool)
	}
	// untouched sections keep their defaults
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_RejectsBadCatalog(t *testing.T) {
	path := writeFile(t, `
scan:
  tools:
    - name: amass
      binary: amass
      kind: names
      chunkTimeout: 10s
      techniques:
        - name: passive
          args: ["enum", "-d", "{domain}"]
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "{output}") {
		t.Fatalf("expected missing output placeholder error, got %v", err)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	path := writeFile(t, "database:\n  driver: oracle\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoad_OpenAIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
}

func TestDSNs(t *testing.T) {
	cfg := Default()
	cfg.Database.Host = "db"
	cfg.Database.Port = 3306
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Name = "recon"

	if got, want := cfg.MySQLDSN(), "u:p@tcp(db:3306)/recon?parseTime=true&charset=utf8mb4&loc=UTC"; got != want {
		t.Errorf("MySQLDSN = %q, want %q", got, want)
	}
	cfg.Database.Port = 5432
	if got := cfg.PostgresDSN(); !strings.Contains(got, "sslmode=disable") || !strings.Contains(got, "port=5432") {
		t.Errorf("PostgresDSN = %q", got)
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || len(cfg.Scan.Tools) != 2 {
		t.Errorf("unexpected example config: driver=%s tools=%d", cfg.Database.Driver, len(cfg.Scan.Tools))
	}
}
