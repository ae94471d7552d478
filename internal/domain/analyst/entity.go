package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis is a stored narrative of a completed scan's findings.
type Analysis struct {
	ID        AnalysisID `json:"id"`
	ScanID    string     `json:"scan_id"`
	Model     string     `json:"model"`
	Result    string     `json:"result"` // JSON string from the analyst
	CreatedAt time.Time  `json:"created_at"`
}
