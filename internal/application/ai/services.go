package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-recon/internal/application"
	"github.com/bryanwahyu/automaton-recon/internal/domain/ai"
	"github.com/bryanwahyu/automaton-recon/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

// Service turns a completed scan into a stored analysis.
type Service struct {
	client   ai.Client
	model    string
	scans    scans.Repository
	analyses analyst.Repository
	clock    application.Clock
}

func NewService(client ai.Client, model string, scanRepo scans.Repository, analyses analyst.Repository, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{client: client, model: model, scans: scanRepo, analyses: analyses, clock: clock}
}

// Model reports which analyst backs the service.
func (s *Service) Model() string { return s.model }

// AnalyzeAndStore analyses a completed scan and persists the result.
// It returns scans.ErrNotCompleted for scans still running or failed.
func (s *Service) AnalyzeAndStore(ctx context.Context, id scans.ScanID) (*analyst.Analysis, error) {
	scan, err := s.scans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if scan.Status != scans.StatusCompleted || scan.Result == nil || scan.Result.IsError() {
		return nil, scans.ErrNotCompleted
	}

	out, err := s.client.Analyze(ctx, ai.Findings{
		Domain:     scan.Domain,
		Summary:    scan.Summary,
		Categories: scan.Result.Categories,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze scan %s: %w", id, err)
	}

	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.NewString()),
		ScanID:    string(id),
		Model:     s.model,
		Result:    out,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.analyses.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	logger.C(logger.WithScan(ctx, string(id))).Info().Str("model", s.model).Msg("analysis stored")
	return a, nil
}

// Latest returns the newest analysis or nil when there is none.
func (s *Service) Latest(ctx context.Context, id scans.ScanID) (*analyst.Analysis, error) {
	if _, err := s.scans.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.analyses.LatestByScan(ctx, string(id))
}
