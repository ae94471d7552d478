package scans

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

// SubdomainsCategory receives every name reported by a names-kind tool.
const SubdomainsCategory = "subdomains"

// ToolRunner runs all chunks of a single tool.
type ToolRunner interface {
	RunTool(ctx context.Context, scanID domain.ScanID, target string, tool domain.ToolSpec) domain.ToolResult
}

// ScanOutcome is either a merged result with its summary or an error message.
type ScanOutcome struct {
	Result  domain.Categories
	Summary string
	Err     string
}

// Failed reports whether the outcome carries an error message.
func (o ScanOutcome) Failed() bool { return o.Err != "" }

// Aggregator runs every tool of the catalog for one scan.
type Aggregator struct {
	Catalog domain.Catalog
	Tools   ToolRunner
	Timeout time.Duration
}

// RunScan returns at the scan deadline at the latest. Partial data is
// discarded on timeout; tools still running are cancelled through ctx.
func (a *Aggregator) RunScan(ctx context.Context, scanID domain.ScanID, target string) ScanOutcome {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	log := logger.C(ctx)

	// plain Group: a tool never fails, and one tool must not stop another
	results := make([]domain.ToolResult, len(a.Catalog))
	var g errgroup.Group
	for i, tool := range a.Catalog {
		g.Go(func() error {
			results[i] = a.Tools.RunTool(ctx, scanID, target, tool)
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn().Dur("timeout", a.Timeout).Msg("scan deadline exceeded")
			return ScanOutcome{Err: domain.MsgScanTimedOut}
		}
		log.Warn().Msg("scan cancelled")
		return ScanOutcome{Err: domain.MsgScanCancelled}
	}

	if allTimedOut(results) {
		log.Warn().Msg("every chunk timed out")
		return ScanOutcome{Err: domain.MsgScanTimedOut}
	}
	return finish(results)
}

func allTimedOut(results []domain.ToolResult) bool {
	chunks, timedOut := 0, 0
	for _, r := range results {
		chunks += r.Chunks
		timedOut += r.TimedOut
	}
	return chunks > 0 && timedOut == chunks
}

func finish(results []domain.ToolResult) (out ScanOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = ScanOutcome{Err: fmt.Sprintf("scan failed: %v", r)}
		}
	}()
	cats := Merge(results)
	return ScanOutcome{Result: cats, Summary: Summarize(cats)}
}

// Merge unions every tool payload into sorted, duplicate free categories.
// Names land in the subdomains category. The output does not depend on the
// order of results.
func Merge(results []domain.ToolResult) domain.Categories {
	sets := make(map[string]map[string]struct{})
	add := func(category string, values []string) {
		set, ok := sets[category]
		if !ok {
			set = make(map[string]struct{}, len(values))
			sets[category] = set
		}
		for _, v := range values {
			set[v] = struct{}{}
		}
	}

	for _, r := range results {
		switch r.Payload.Kind {
		case domain.PayloadCategories:
			for k, v := range r.Payload.Categories {
				add(k, v)
			}
		case domain.PayloadNames:
			add(SubdomainsCategory, r.Payload.Names)
		}
	}

	out := make(domain.Categories, len(sets))
	for k, set := range sets {
		if len(set) == 0 {
			continue
		}
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[k] = vals
	}
	return out
}

// Summarize renders "<category>: <count>" per category, sorted by name and
// joined with ", ". No categories give an empty string.
func Summarize(c domain.Categories) string {
	names := c.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, len(c[name])))
	}
	return strings.Join(parts, ", ")
}
