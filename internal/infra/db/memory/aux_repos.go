package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/automaton-recon/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	mu     sync.Mutex
	nextID int64
	byScan map[string][]*scanerrors.ScanError
}

func NewScanErrorRepository() *ScanErrorRepository {
	return &ScanErrorRepository{byScan: make(map[string][]*scanerrors.ScanError)}
}

func (r *ScanErrorRepository) Save(ctx context.Context, e *scanerrors.ScanError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *e
	cp.ID = r.nextID
	r.byScan[e.ScanID] = append(r.byScan[e.ScanID], &cp)
	return nil
}

// ListByScan returns the newest entries first.
func (r *ScanErrorRepository) ListByScan(ctx context.Context, scanID string, limit int) ([]*scanerrors.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byScan[scanID]
	out := make([]*scanerrors.ScanError, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}

type AnalystRepository struct {
	mu     sync.Mutex
	latest map[string]*analyst.Analysis
}

func NewAnalystRepository() *AnalystRepository {
	return &AnalystRepository{latest: make(map[string]*analyst.Analysis)}
}

func (r *AnalystRepository) Save(ctx context.Context, a *analyst.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.latest[a.ScanID] = &cp
	return nil
}

// LatestByScan returns nil, nil when the scan has no analysis yet.
func (r *AnalystRepository) LatestByScan(ctx context.Context, scanID string) (*analyst.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.latest[scanID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}
