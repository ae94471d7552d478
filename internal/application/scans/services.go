package scans

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-recon/internal/application"
	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

// ErrShuttingDown is returned by Submit once Shutdown has been called.
var ErrShuttingDown = errors.New("scan service is shutting down")

// Scanner produces the outcome of one scan.
type Scanner interface {
	RunScan(ctx context.Context, scanID domain.ScanID, target string) ScanOutcome
}

// Recorder observes scan lifecycle transitions. middleware.Metrics implements it.
type Recorder interface {
	ScanStarted()
	ScanFinished(status domain.Status)
}

// Service owns the scan lifecycle: it creates the record, runs the scan in
// the background and writes exactly one terminal update.
// Service is safe for concurrent use.
type Service struct {
	Repo    domain.Repository
	Scanner Scanner
	Clock   application.Clock
	Metrics Recorder // optional

	base    context.Context
	stop    context.CancelFunc
	locks   keyedMutex
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	running map[domain.ScanID]*runningScan
}

type runningScan struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(repo domain.Repository, scanner Scanner, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	base, stop := context.WithCancel(context.Background())
	return &Service{
		Repo:    repo,
		Scanner: scanner,
		Clock:   clock,
		base:    base,
		stop:    stop,
		running: make(map[domain.ScanID]*runningScan),
	}
}

// Submit validates the domain, stores an in-progress record and starts the
// scan without waiting for it. The returned record is the stored one.
func (s *Service) Submit(ctx context.Context, target string) (*domain.Scan, error) {
	if !domain.ValidDomain(target) {
		return nil, domain.ErrInvalidDomain
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrShuttingDown
	}

	scan := &domain.Scan{
		ID:        domain.ScanID(uuid.NewString()),
		Domain:    target,
		CreatedAt: s.Clock.Now().UTC(),
		Status:    domain.StatusInProgress,
	}
	if err := s.Repo.Create(ctx, scan); err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.ScanStarted()
	}

	runCtx, cancel := context.WithCancel(logger.WithScan(s.base, string(scan.ID)))
	rs := &runningScan{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		s.writeTerminal(runCtx, scan.ID, ScanOutcome{Err: domain.MsgScanCancelled})
		return nil, ErrShuttingDown
	}
	s.running[scan.ID] = rs
	s.wg.Add(1)
	s.mu.Unlock()

	logger.C(runCtx).Info().Str("domain", target).Msg("scan submitted")

	go s.run(runCtx, scan.ID, target, rs)
	return scan.Clone(), nil
}

func (s *Service) run(ctx context.Context, id domain.ScanID, target string, rs *runningScan) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		rs.cancel()
		close(rs.done)
	}()

	var out ScanOutcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.C(ctx).Error().Interface("panic", r).Msg("scan panicked")
				out = ScanOutcome{Err: fmt.Sprintf("scan failed: %v", r)}
			}
		}()
		out = s.Scanner.RunScan(ctx, id, target)
	}()

	s.writeTerminal(ctx, id, out)
}

// writeTerminal stores the single terminal transition of a scan.
func (s *Service) writeTerminal(ctx context.Context, id domain.ScanID, out ScanOutcome) {
	unlock := s.locks.Lock(string(id))
	defer unlock()

	log := logger.C(ctx)
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	now := s.Clock.Now().UTC()
	var p domain.Patch
	var status domain.Status
	if out.Failed() {
		status = domain.StatusError
		empty := ""
		p = domain.Patch{Status: &status, CompletedAt: &now, Result: domain.ErrorResult(out.Err), Summary: &empty}
	} else {
		status = domain.StatusCompleted
		result := out.Result
		if result == nil {
			result = domain.Categories{}
		}
		p = domain.Patch{Status: &status, CompletedAt: &now, Result: &domain.Result{Categories: result}, Summary: &out.Summary}
	}

	if err := s.Repo.Update(wctx, id, p); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("terminal update failed")
		return
	}
	if s.Metrics != nil {
		s.Metrics.ScanFinished(status)
	}
	ev := log.Info()
	if status == domain.StatusError {
		ev = log.Warn().Str("error", out.Err)
	}
	ev.Str("status", string(status)).Str("summary", out.Summary).Msg("scan finished")
}

func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Scan, error) {
	return s.Repo.List(ctx)
}

// Running counts scans whose background run has not settled.
func (s *Service) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Wait blocks until the scan's background run has written its terminal
// state. Unknown or already settled ids return immediately.
func (s *Service) Wait(ctx context.Context, id domain.ScanID) error {
	s.mu.Lock()
	rs, ok := s.running[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-rs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops a running scan. It reports whether the scan was running.
func (s *Service) Cancel(id domain.ScanID) bool {
	s.mu.Lock()
	rs, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		rs.cancel()
	}
	return ok
}

// Shutdown stops accepting scans, cancels those in flight (killing their
// tool processes) and waits for their terminal writes or ctx expiry.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
