//go:build integration

package sqlrepo_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-recon/internal/infra/db/sqlrepo"
)

type container struct {
	image string
	port  string
	env   map[string]string
	ready string
	dsn   func(host, port string) string
}

func start(t *testing.T, c container) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        c.image,
			ExposedPorts: []string{c.port},
			Env:          c.env,
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(c.port),
				wait.ForLog(c.ready),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", c.image, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mapped, err := ctr.MappedPort(ctx, c.port)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return c.dsn(host, mapped.Port())
}

// exercise runs the same lifecycle against any dialect.
func exercise(t *testing.T, db *sql.DB, d sqlrepo.Dialect) {
	t.Helper()
	ctx := context.Background()
	if err := sqlrepo.Migrate(ctx, db, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := sqlrepo.NewScanRepository(db, d)

	base := time.Now().UTC()
	for i, id := range []string{"s1", "s2"} {
		if err := repo.Create(ctx, newScan(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	st := domain.StatusCompleted
	now := time.Now()
	sum := "hosts: 2"
	res := &domain.Result{Categories: domain.Categories{"hosts": {"a.example.com", "b.example.com"}}}
	if err := repo.Update(ctx, "s1", domain.Patch{Status: &st, CompletedAt: &now, Result: res, Summary: &sum}); err != nil {
		t.Fatalf("update: %v", err)
	}
	failed := domain.StatusError
	if err := repo.Update(ctx, "s1", domain.Patch{Status: &failed}); err != nil {
		t.Fatalf("second update: %v", err)
	}

	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusCompleted || len(got.Result.Categories["hosts"]) != 2 {
		t.Errorf("unexpected scan: %+v", got)
	}
	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "s2" {
		t.Errorf("list order wrong: %v", list)
	}
}

func TestPostgres_Integration(t *testing.T) {
	dsn := start(t, container{
		image: "postgres:16-alpine",
		port:  "5432/tcp",
		env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "recon",
		},
		ready: "database system is ready to accept connections",
		dsn: func(host, port string) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=recon sslmode=disable", host, port)
		},
	})
	db, err := postgres.Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	exercise(t, db, postgres.Dialect)
}

func TestMySQL_Integration(t *testing.T) {
	dsn := start(t, container{
		image: "mysql:8.4",
		port:  "3306/tcp",
		env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root",
			"MYSQL_DATABASE":      "recon",
		},
		ready: "ready for connections",
		dsn: func(host, port string) string {
			return fmt.Sprintf("root:root@tcp(%s:%s)/recon?parseTime=true&charset=utf8mb4&loc=UTC", host, port)
		},
	})

	var db *sql.DB
	var err error
	// mysql logs "ready" once for the init server before the real one starts
	for i := 0; i < 10; i++ {
		if db, err = mysql.Connect(context.Background(), dsn); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	exercise(t, db, mysql.Dialect)
}
