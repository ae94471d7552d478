package scans

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestResult_JSONShapes(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want string
	}{
		{"categories", Result{Categories: Categories{"hosts": {"a.example.com"}}}, `{"hosts":["a.example.com"]}`},
		{"empty", Result{}, `{}`},
		{"error", Result{Error: MsgScanTimedOut}, `{"error":"scan timed out"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tc.want {
				t.Errorf("marshal = %s, want %s", b, tc.want)
			}
		})
	}
}

func TestResult_UnmarshalError(t *testing.T) {
	var r Result
	if err := json.Unmarshal([]byte(`{"error":"scan failed: boom"}`), &r); err != nil {
		t.Fatal(err)
	}
	if !r.IsError() || r.Error != "scan failed: boom" {
		t.Errorf("got %+v, want error payload", r)
	}
}

func TestResult_ErrorKeyAmongCategories(t *testing.T) {
	// an "error" category next to others is data, not an error payload
	var r Result
	if err := json.Unmarshal([]byte(`{"error":["x"],"hosts":["h"]}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.IsError() {
		t.Fatal("unexpected error payload")
	}
	if len(r.Categories) != 2 {
		t.Errorf("categories = %v", r.Categories)
	}
}

func TestResult_UnmarshalRejectsBadCategory(t *testing.T) {
	var r Result
	if err := json.Unmarshal([]byte(`{"hosts":"nope"}`), &r); err == nil {
		t.Fatal("expected error")
	}
}

func TestScan_CloneIsDeep(t *testing.T) {
	now := time.Now()
	s := &Scan{
		ID:          "id",
		Domain:      "example.com",
		CompletedAt: &now,
		Result:      &Result{Categories: Categories{"hosts": {"a"}}},
	}
	c := s.Clone()
	c.Result.Categories["hosts"][0] = "changed"
	*c.CompletedAt = now.Add(time.Hour)

	if s.Result.Categories["hosts"][0] != "a" {
		t.Error("clone shares category slices")
	}
	if !s.CompletedAt.Equal(now) {
		t.Error("clone shares completed_at")
	}
	if (*Scan)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestPatchFromMap(t *testing.T) {
	now := time.Now()
	p := PatchFromMap(map[string]any{
		"status":       "completed",
		"completed_at": now,
		"summary":      "hosts: 1",
		"result":       Result{Categories: Categories{"hosts": {"a"}}},
		"domain":       "evil.com",
		"scan_id":      "other",
	})
	if p.Status == nil || *p.Status != StatusCompleted {
		t.Errorf("status = %v", p.Status)
	}
	if p.CompletedAt == nil || !p.CompletedAt.Equal(now) {
		t.Errorf("completed_at = %v", p.CompletedAt)
	}
	if p.Summary == nil || *p.Summary != "hosts: 1" {
		t.Errorf("summary = %v", p.Summary)
	}

	s := &Scan{ID: "id", Domain: "example.com", Status: StatusInProgress}
	p.Apply(s)
	if s.Domain != "example.com" || s.ID != "id" {
		t.Errorf("identity fields changed: %+v", s)
	}
	if s.Status != StatusCompleted || s.Result == nil {
		t.Errorf("patch not applied: %+v", s)
	}
}

func TestPatchFromMap_DropsWrongTypes(t *testing.T) {
	p := PatchFromMap(map[string]any{
		"status":       42,
		"completed_at": "yesterday",
		"summary":      []string{"x"},
		"domain":       "x.com",
	})
	if !p.Empty() {
		t.Errorf("expected empty patch, got %+v", p)
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusInProgress.Terminal() {
		t.Error("in_progress should not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusError.Terminal() {
		t.Error("completed and error are terminal")
	}
}

func TestValidDomain(t *testing.T) {
	valid := []string{"example.com", "a.b.example.co.uk", "x1-y2.example.io", "EXAMPLE.COM"}
	invalid := []string{
		"",
		"localhost",
		"-bad.com",
		"bad-.com",
		"exa mple.com",
		"example.c",
		"example.123",
		"http://example.com",
		"example.com.",
		strings.Repeat("a", 64) + ".com",
		strings.Repeat(strings.Repeat("a", 60)+".", 5) + "com",
	}
	for _, d := range valid {
		if !ValidDomain(d) {
			t.Errorf("ValidDomain(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if ValidDomain(d) {
			t.Errorf("ValidDomain(%q) = true, want false", d)
		}
	}
}

func TestCategories_Names(t *testing.T) {
	c := Categories{"urls": nil, "emails": nil, "hosts": nil}
	got := strings.Join(c.Names(), ",")
	if got != "emails,hosts,urls" {
		t.Errorf("Names() = %s", got)
	}
}

func TestPatch_Normalize(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	done := StatusCompleted
	p := Patch{Status: &done}.Normalize(now)
	if p.CompletedAt == nil || !p.CompletedAt.Equal(now) {
		t.Errorf("terminal patch completed_at = %v, want %v", p.CompletedAt, now)
	}

	earlier := now.Add(-time.Minute)
	p = Patch{Status: &done, CompletedAt: &earlier}.Normalize(now)
	if !p.CompletedAt.Equal(earlier) {
		t.Errorf("explicit completed_at replaced: %v", p.CompletedAt)
	}

	p = Patch{CompletedAt: &earlier}.Normalize(now)
	if !p.Empty() {
		t.Errorf("completed_at without terminal status kept: %+v", p)
	}

	running := StatusInProgress
	p = Patch{Status: &running, CompletedAt: &earlier}.Normalize(now)
	if p.CompletedAt != nil {
		t.Errorf("in-progress patch kept completed_at")
	}
}

func TestPatch_ApplyCopiesResult(t *testing.T) {
	cats := Categories{"hosts": {"a"}}
	s := &Scan{}
	Patch{Result: &Result{Categories: cats}}.Apply(s)
	cats["hosts"][0] = "changed"
	if s.Result.Categories["hosts"][0] != "a" {
		t.Error("applied result shares the caller's slices")
	}
}
