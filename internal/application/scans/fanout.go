package scans

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

// Coordinator fans one tool out into its chunks and folds what they return.
type Coordinator struct {
	Runner  domain.Runner
	WorkDir string
	// Errors records chunks that contributed nothing. Optional.
	Errors scanerrors.Repository
}

// RunTool runs every chunk of tool concurrently and waits for all of them.
// It never fails: a chunk that fails or times out simply adds nothing.
func (c *Coordinator) RunTool(ctx context.Context, scanID domain.ScanID, target string, tool domain.ToolSpec) domain.ToolResult {
	tasks := domain.BuildTasks(scanID, target, tool, c.WorkDir)
	results := make([]domain.ChunkResult, len(tasks))

	var g errgroup.Group
	if tool.MaxParallel > 0 {
		g.SetLimit(tool.MaxParallel)
	}
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = c.Runner.Run(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	out := fold(tool, results)
	c.recordFailures(ctx, scanID, results)

	logger.C(ctx).Info().
		Str("tool", tool.Name).
		Int("chunks", out.Chunks).
		Int("failed", out.Failed).
		Int("timed_out", out.TimedOut).
		Int("values", out.Payload.Len()).
		Msg("tool finished")
	return out
}

// fold concatenates chunk payloads. Deduplication happens at merge time.
func fold(tool domain.ToolSpec, results []domain.ChunkResult) domain.ToolResult {
	out := domain.ToolResult{Tool: tool.Name, Chunks: len(results)}
	cats := make(map[string][]string)
	var names []string

	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeFailed:
			out.Failed++
		case domain.OutcomeTimedOut:
			out.TimedOut++
		}
		switch r.Payload.Kind {
		case domain.PayloadCategories:
			for k, v := range r.Payload.Categories {
				cats[k] = append(cats[k], v...)
			}
		case domain.PayloadNames:
			names = append(names, r.Payload.Names...)
		}
	}

	switch {
	case len(cats) > 0 && len(names) > 0:
		// a tool declares one kind; mixed payloads only come from a
		// misconfigured catalog, keep both by filing names as subdomains
		cats[SubdomainsCategory] = append(cats[SubdomainsCategory], names...)
		out.Payload = domain.Payload{Kind: domain.PayloadCategories, Categories: cats}
	case len(cats) > 0:
		out.Payload = domain.Payload{Kind: domain.PayloadCategories, Categories: cats}
	case len(names) > 0:
		out.Payload = domain.Payload{Kind: domain.PayloadNames, Names: names}
	}
	return out
}

func (c *Coordinator) recordFailures(ctx context.Context, scanID domain.ScanID, results []domain.ChunkResult) {
	if c.Errors == nil {
		return
	}
	// the scan deadline may already be gone, the failure record is still wanted
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, r := range results {
		if r.Outcome != domain.OutcomeFailed && r.Outcome != domain.OutcomeTimedOut {
			continue
		}
		err := c.Errors.Save(wctx, &scanerrors.ScanError{
			ScanID:    string(scanID),
			Tool:      r.Tool,
			Technique: r.Technique,
			ChunkID:   r.ChunkID,
			Outcome:   string(r.Outcome),
			Message:   r.Message,
			CreatedAt: time.Now(),
		})
		if err != nil {
			logger.C(ctx).Warn().Err(err).Str("chunk_id", r.ChunkID).Msg("record chunk failure")
		}
	}
}
