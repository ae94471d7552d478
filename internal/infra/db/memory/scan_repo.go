// Package memory keeps scan records in process memory. It is the default
// store for single-node runs and for tests; state is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

type ScanRepository struct {
	mu    sync.RWMutex
	scans map[domain.ScanID]*domain.Scan
}

func NewScanRepository() *ScanRepository {
	return &ScanRepository{scans: make(map[domain.ScanID]*domain.Scan)}
}

func (r *ScanRepository) Create(ctx context.Context, s *domain.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans[s.ID] = s.Clone()
	return nil
}

func (r *ScanRepository) Update(ctx context.Context, id domain.ScanID, p domain.Patch) error {
	log := logger.C(ctx)
	p = p.Normalize(time.Now())
	if p.Empty() {
		log.Warn().Str("scan_id", string(id)).Msg("update skipped: empty patch")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scans[id]
	if !ok {
		log.Warn().Str("scan_id", string(id)).Msg("update skipped: unknown scan")
		return nil
	}
	if s.Status.Terminal() {
		log.Warn().Str("scan_id", string(id)).Str("status", string(s.Status)).Msg("update skipped: scan already terminal")
		return nil
	}
	p.Apply(s)
	return nil
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

// List returns every scan, newest first.
func (r *ScanRepository) List(ctx context.Context) ([]*domain.Scan, error) {
	r.mu.RLock()
	out := make([]*domain.Scan, 0, len(r.scans))
	for _, s := range r.scans {
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Check implements middleware.HealthChecker.
func (r *ScanRepository) Check(ctx context.Context) error { return nil }
