package ai

import "context"

// Findings is the input an analyst reasons about.
type Findings struct {
	Domain     string              `json:"domain"`
	Summary    string              `json:"summary"`
	Categories map[string][]string `json:"categories"`
}

type Client interface {
	Analyze(ctx context.Context, f Findings) (string, error)
}
