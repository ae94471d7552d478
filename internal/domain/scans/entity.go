package scans

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// ScanID tipe untuk Scan
type ScanID string

// Status enum
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Error messages written into terminal error records.
const (
	MsgScanTimedOut  = "scan timed out"
	MsgScanCancelled = "scan cancelled"
)

// Categories maps a category name to its sorted, unique values.
type Categories map[string][]string

// Names returns the category names in lexicographic order.
func (c Categories) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Result is either a categorized map or an error payload.
// It serializes as the bare map or as {"error": "..."}.
type Result struct {
	Categories Categories
	Error      string
}

// ErrorResult builds the error payload shape.
func ErrorResult(msg string) *Result { return &Result{Error: msg} }

// IsError reports whether r is an error payload.
func (r *Result) IsError() bool { return r != nil && r.Error != "" }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	if r.Categories == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string][]string(r.Categories))
}

func (r *Result) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if msg, ok := raw["error"]; ok && len(raw) == 1 {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			r.Error = s
			r.Categories = nil
			return nil
		}
	}
	cats := make(Categories, len(raw))
	for k, v := range raw {
		var vals []string
		if err := json.Unmarshal(v, &vals); err != nil {
			return fmt.Errorf("decode category %q: %w", k, err)
		}
		cats[k] = vals
	}
	r.Categories = cats
	r.Error = ""
	return nil
}

// Aggregate Root: Scan
type Scan struct {
	ID          ScanID     `json:"scan_id"`
	Domain      string     `json:"domain"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      Status     `json:"status"`
	Result      *Result    `json:"result"`
	CompletedAt *time.Time `json:"completed_at"`
	Summary     string     `json:"summary"`
}

// Clone returns a deep copy so callers never share state with a store.
func (s *Scan) Clone() *Scan {
	if s == nil {
		return nil
	}
	out := *s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	out.Result = s.Result.clone()
	return &out
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	res := Result{Error: r.Error}
	if r.Categories != nil {
		res.Categories = make(Categories, len(r.Categories))
		for k, v := range r.Categories {
			res.Categories[k] = append([]string(nil), v...)
		}
	}
	return &res
}

// Patch carries the only fields a scan update may touch.
// Nil fields are left unchanged.
type Patch struct {
	Status      *Status
	CompletedAt *time.Time
	Result      *Result
	Summary     *string
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.CompletedAt == nil && p.Result == nil && p.Summary == nil
}

// Normalize keeps completed_at in step with status: a terminal status
// without a completion time gets now, and a completion time is dropped
// unless the patch also makes the scan terminal.
func (p Patch) Normalize(now time.Time) Patch {
	switch {
	case p.Status != nil && p.Status.Terminal():
		if p.CompletedAt == nil {
			t := now.UTC()
			p.CompletedAt = &t
		}
	default:
		p.CompletedAt = nil
	}
	return p
}

// Apply writes the patch onto s.
func (p Patch) Apply(s *Scan) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		s.CompletedAt = &t
	}
	if p.Result != nil {
		s.Result = p.Result.clone()
	}
	if p.Summary != nil {
		s.Summary = *p.Summary
	}
}

// PatchFromMap keeps status, completed_at, result and summary and drops
// every other key. Values of the wrong type are dropped as well.
func PatchFromMap(fields map[string]any) Patch {
	var p Patch
	for k, v := range fields {
		switch k {
		case "status":
			switch st := v.(type) {
			case Status:
				p.Status = &st
			case string:
				s := Status(st)
				p.Status = &s
			}
		case "completed_at":
			if t, ok := v.(time.Time); ok {
				p.CompletedAt = &t
			}
		case "result":
			switch r := v.(type) {
			case Result:
				p.Result = &r
			case *Result:
				p.Result = r
			}
		case "summary":
			if s, ok := v.(string); ok {
				p.Summary = &s
			}
		}
	}
	return p
}

var domainRx = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}$`)

// ValidDomain checks hostname syntax: dot separated labels that neither start
// nor end with a hyphen, ending in an alphabetic TLD.
func ValidDomain(domain string) bool {
	if len(domain) > 253 {
		return false
	}
	return domainRx.MatchString(domain)
}
