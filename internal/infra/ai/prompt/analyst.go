package prompt

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bryanwahyu/automaton-recon/internal/domain/ai"
)

// maxValuesPerCategory keeps the user prompt bounded for large scans.
const maxValuesPerCategory = 200

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior offensive security analyst reviewing passive reconnaissance results for a single domain. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase severity values: critical, high, medium, low, info.
- counts.total must equal counts.critical + counts.high + counts.medium + counts.low.
- findings is an array of objects; include at least a title, severity, and summary. Keep items concise.
- Only reason about the hosts, emails and other values given. Do not invent assets.

Schema (example with empty values):
{
  "domain": "<string>",
  "counts": {"critical": 0, "high": 0, "medium": 0, "low": 0, "total": 0},
  "findings": [
    {
      "title": "<string>",
      "severity": "<critical|high|medium|low|info>",
      "summary": "<string>",
      "assets": ["<string>"],
      "recommendation": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt embeds the findings as JSON. Long categories are truncated.
func GetUserPrompt(f ai.Findings) string {
	trimmed := ai.Findings{Domain: f.Domain, Summary: f.Summary, Categories: make(map[string][]string, len(f.Categories))}
	for k, v := range f.Categories {
		if len(v) > maxValuesPerCategory {
			v = v[:maxValuesPerCategory]
		}
		trimmed.Categories[k] = v
	}
	b, _ := json.Marshal(trimmed)
	return fmt.Sprintf("Review the reconnaissance results for %s and respond with the JSON per schema. Results: %s", f.Domain, b)
}

type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

type Finding struct {
	Title          string   `json:"title"`
	Severity       string   `json:"severity"`
	Summary        string   `json:"summary"`
	Assets         []string `json:"assets,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// Report matches the schema used by the system prompt.
type Report struct {
	Domain   string    `json:"domain"`
	Counts   Counts    `json:"counts"`
	Findings []Finding `json:"findings"`
	Advice   string    `json:"advice"`
}

func (r *Report) add(f Finding) {
	sort.Strings(f.Assets)
	r.Findings = append(r.Findings, f)
	switch f.Severity {
	case "critical":
		r.Counts.Critical++
	case "high":
		r.Counts.High++
	case "medium":
		r.Counts.Medium++
	case "low":
		r.Counts.Low++
	}
	r.Counts.Total = r.Counts.Critical + r.Counts.High + r.Counts.Medium + r.Counts.Low
}
