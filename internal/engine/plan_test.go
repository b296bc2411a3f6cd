package engine

import (
	"bytes"
	"strings"
	"testing"

	"eliwatch/internal/checks"
)

func TestAuditPlan_AddSource(t *testing.T) {
	c1 := &fakeCheck{id: "c1"}
	c2 := &fakeCheck{id: "c2"}
	plan := NewAuditPlan([]checks.Check{c1, c2})

	if err := plan.AddSource(testSource("europe/ch/acme.geojson", "acme")); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}
	if err := plan.AddSource(testSource("europe/ch/acme.geojson", "acme")); err == nil {
		t.Fatal("expected error when adding the same path twice")
	}
	if err := plan.AddSource(nil); err == nil {
		t.Fatal("expected error for nil source")
	}

	if len(plan.SourcePlans) != 1 {
		t.Fatalf("expected 1 source plan, got %d", len(plan.SourcePlans))
	}
	if got := len(plan.SourcePlans[0].Checks); got != 2 {
		t.Errorf("expected 2 checks for source, got %d", got)
	}
	if got := strings.Join(plan.CheckIDs(), ","); got != "c1,c2" {
		t.Errorf("CheckIDs() = %q, want c1,c2", got)
	}
}

func TestAuditPlan_Uninitialized(t *testing.T) {
	var nilPlan *AuditPlan
	if err := nilPlan.AddSource(testSource("a.geojson", "a")); err == nil {
		t.Error("expected error for nil plan")
	}
	if err := (&AuditPlan{}).AddSource(testSource("a.geojson", "a")); err == nil {
		t.Error("expected error for zero plan")
	}
}

func TestAuditPlan_Describe(t *testing.T) {
	plan := NewAuditPlan([]checks.Check{&fakeCheck{id: "category"}, &fakeCheck{id: "imagery"}})
	src := testSource("europe/ch/acme.geojson", "acme")
	src.Type = "tms"
	if err := plan.AddSource(src); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}

	var buf bytes.Buffer
	if err := plan.Describe(&buf); err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	want := "Checks: category, imagery\nSources (1):\neurope/ch/acme.geojson\tacme\ttms\n"
	if buf.String() != want {
		t.Errorf("Describe() =\n%q\nwant\n%q", buf.String(), want)
	}
}
