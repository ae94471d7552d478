package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		" junk ":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestC_AddsScanID(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Service: "test", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "off"}) })

	ctx := WithScan(context.Background(), "scan-1")
	C(ctx).Info().Msg("hello")
	Named("runner").Warn().Msg("named")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["scan_id"] != "scan-1" || first["service"] != "test" || first["message"] != "hello" {
		t.Errorf("unexpected fields: %v", first)
	}
	if !strings.Contains(lines[1], `"component":"runner"`) {
		t.Errorf("named logger missing component: %s", lines[1])
	}
}

func TestC_WithoutScan(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "off"}) })

	C(context.Background()).Debug().Msg("plain")
	if strings.Contains(buf.String(), "scan_id") {
		t.Errorf("unexpected scan_id in %s", buf.String())
	}
}
