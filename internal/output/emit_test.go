package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

func TestEmitSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "json")
	if err != nil {
		t.Fatalf("NewEmitSink returned error: %v", err)
	}

	_ = s.Write(checks.Result{Source: "acme", CheckID: "imagery", Status: checks.StatusGood})
	_ = s.Write(sampleReport())
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	got, err := report.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("failed to parse emitted snapshot: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got.Sources))
	}
}

func TestEmitSink_JSONWithoutReportWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	s, _ := NewEmitSink(&buf, "json")
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestEmitSink_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink returned error: %v", err)
	}

	_ = s.Write(checks.Result{Source: "acme", CheckID: "imagery", Status: checks.StatusGood})
	_ = s.Write(checks.Result{Source: "acme", CheckID: "category", Status: checks.StatusError})
	_ = s.Write(sampleReport())
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d", len(lines))
	}
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		if e.Type != EventCheckResult {
			t.Fatalf("expected event type %s, got %q", EventCheckResult, e.Type)
		}
		if e.Result == nil {
			t.Fatalf("expected event to include result, got nil")
		}
		if e.Source != "acme" {
			t.Fatalf("expected source 'acme', got %q", e.Source)
		}
	}
}

func TestEmitSink_InvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewEmitSink(&buf, "text"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestEmitSink_NilWriter(t *testing.T) {
	if _, err := NewEmitSink(nil, "json"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
