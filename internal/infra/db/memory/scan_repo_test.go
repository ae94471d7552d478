package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-recon/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

func TestScanRepository_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	s := &domain.Scan{ID: "s1", Domain: "example.com", CreatedAt: time.Now(), Status: domain.StatusInProgress}
	if err := r.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.Domain = "mutated.com"

	got, err := r.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Domain != "example.com" {
		t.Errorf("store shares state with caller: %q", got.Domain)
	}
	got.Status = domain.StatusError
	again, _ := r.Get(ctx, "s1")
	if again.Status != domain.StatusInProgress {
		t.Error("mutating a returned scan changed the store")
	}
}

func TestScanRepository_Update(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	_ = r.Create(ctx, &domain.Scan{ID: "s1", CreatedAt: time.Now(), Status: domain.StatusInProgress})

	// unrecognized keys are dropped before they reach the store
	p := domain.PatchFromMap(map[string]any{"domain": "evil.com", "summary": "x: 1"})
	if err := r.Update(ctx, "s1", p); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get(ctx, "s1")
	if got.Summary != "x: 1" || got.Domain != "" {
		t.Errorf("unexpected scan after patch: %+v", got)
	}

	st := domain.StatusCompleted
	_ = r.Update(ctx, "s1", domain.Patch{Status: &st})
	failed := domain.StatusError
	_ = r.Update(ctx, "s1", domain.Patch{Status: &failed})
	got, _ = r.Get(ctx, "s1")
	if got.Status != domain.StatusCompleted {
		t.Errorf("terminal status overwritten: %s", got.Status)
	}

	if err := r.Update(ctx, "ghost", domain.Patch{Status: &st}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("update created a record")
	}
}

func TestScanRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	base := time.Now()
	for i, id := range []domain.ScanID{"a", "b", "c"} {
		_ = r.Create(ctx, &domain.Scan{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Millisecond)})
	}
	list, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []domain.ScanID{"c", "b", "a"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestScanRepository_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	_ = r.Create(ctx, &domain.Scan{ID: "s1", CreatedAt: time.Now(), Status: domain.StatusInProgress})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := "tick"
			_ = r.Update(ctx, "s1", domain.Patch{Summary: &s})
			_, _ = r.Get(ctx, "s1")
			_, _ = r.List(ctx)
		}()
	}
	wg.Wait()
}

func TestScanErrorRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewScanErrorRepository()
	for _, tech := range []string{"a", "b", "c"} {
		_ = r.Save(ctx, &scanerrors.ScanError{ScanID: "s1", Technique: tech})
	}
	list, _ := r.ListByScan(ctx, "s1", 2)
	if len(list) != 2 || list[0].Technique != "c" || list[1].Technique != "b" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].ID != 3 {
		t.Errorf("id = %d, want 3", list[0].ID)
	}
}

func TestAnalystRepository_Latest(t *testing.T) {
	ctx := context.Background()
	r := NewAnalystRepository()
	if a, err := r.LatestByScan(ctx, "s1"); a != nil || err != nil {
		t.Fatalf("got %v, %v", a, err)
	}
	_ = r.Save(ctx, &analyst.Analysis{ID: "1", ScanID: "s1"})
	_ = r.Save(ctx, &analyst.Analysis{ID: "2", ScanID: "s1"})
	a, _ := r.LatestByScan(ctx, "s1")
	if a == nil || a.ID != "2" {
		t.Errorf("latest = %+v", a)
	}
}

func TestScanRepository_UpdateCopiesResult(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	_ = r.Create(ctx, &domain.Scan{ID: "s1", CreatedAt: time.Now(), Status: domain.StatusInProgress})

	cats := domain.Categories{"hosts": {"a.example.com"}}
	st := domain.StatusCompleted
	if err := r.Update(ctx, "s1", domain.Patch{Status: &st, Result: &domain.Result{Categories: cats}}); err != nil {
		t.Fatal(err)
	}
	cats["hosts"][0] = "changed"
	cats["emails"] = []string{"x@example.com"}

	got, _ := r.Get(ctx, "s1")
	if got.Result.Categories["hosts"][0] != "a.example.com" || len(got.Result.Categories) != 1 {
		t.Errorf("stored result follows caller's map: %v", got.Result.Categories)
	}
}

func TestScanRepository_UpdateKeepsCompletedAtInStep(t *testing.T) {
	ctx := context.Background()
	r := NewScanRepository()
	_ = r.Create(ctx, &domain.Scan{ID: "s1", CreatedAt: time.Now(), Status: domain.StatusInProgress})

	// completed_at alone would leave an in-progress record with a completion time
	now := time.Now()
	_ = r.Update(ctx, "s1", domain.Patch{CompletedAt: &now})
	got, _ := r.Get(ctx, "s1")
	if got.CompletedAt != nil {
		t.Errorf("in-progress scan got completed_at %v", got.CompletedAt)
	}

	st := domain.StatusError
	_ = r.Update(ctx, "s1", domain.Patch{Status: &st, Result: domain.ErrorResult("boom")})
	got, _ = r.Get(ctx, "s1")
	if got.Status != domain.StatusError || got.CompletedAt == nil {
		t.Errorf("terminal scan without completed_at: %+v", got)
	}
}
