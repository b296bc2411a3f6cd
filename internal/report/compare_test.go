package report

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"eliwatch/internal/checks"
)

func reportOf(sources ...SourceResult) *Report {
	r := New("run", time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), "sources", checks.RequiredIDs)
	for _, s := range sources {
		r.Add(s)
	}
	return r
}

func TestCompare(t *testing.T) {
	prev := reportOf(
		result("stays-broken", "a.geojson", checks.StatusError),
		result("recovers", "b.geojson", checks.StatusError),
		result("breaks", "c.geojson", checks.StatusGood),
		result("gone", "d.geojson", checks.StatusGood),
	)
	curr := reportOf(
		result("stays-broken", "a.geojson", checks.StatusError),
		result("recovers", "b.geojson", checks.StatusWarning),
		result("breaks", "c.geojson", checks.StatusError),
		result("new-broken", "e.geojson", checks.StatusError),
		result("new-ok", "f.geojson", checks.StatusGood),
	)

	d := Compare(prev, curr)
	if d.FirstRun || d.Empty() {
		t.Fatalf("unexpected delta: %+v", d)
	}
	lists := []struct {
		name      string
		got, want []string
	}{
		{"NewlyBroken", d.NewlyBroken, []string{"breaks", "new-broken"}},
		{"Recovered", d.Recovered, []string{"recovers"}},
		{"Added", d.Added, []string{"new-broken", "new-ok"}},
		{"Removed", d.Removed, []string{"gone"}},
	}
	for _, l := range lists {
		if !reflect.DeepEqual(l.got, l.want) {
			t.Errorf("%s = %v, want %v", l.name, l.got, l.want)
		}
	}
}

func TestCompare_FirstRun(t *testing.T) {
	d := Compare(nil, reportOf(result("a", "a.geojson", checks.StatusError)))
	if !d.FirstRun || !d.Empty() {
		t.Errorf("expected an empty first-run delta, got %+v", d)
	}
	if len(d.NewlyBroken) != 0 || d.Added == nil {
		t.Errorf("unexpected lists: %+v", d)
	}
}

func TestUpdateBrokenDB(t *testing.T) {
	today := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	prev := BrokenDB{"old": "2026-10-01", "fixed": "2026-09-01"}
	r := reportOf(
		result("old", "a.geojson", checks.StatusError),
		result("fixed", "b.geojson", checks.StatusGood),
		result("fresh", "c.geojson", checks.StatusError),
	)

	next := Update(prev, r, today)
	if want := (BrokenDB{"old": "2026-10-01", "fresh": "2026-10-17"}); !reflect.DeepEqual(next, want) {
		t.Errorf("Update = %v, want %v", next, want)
	}
	if r.Sources[0].BrokenSince != "2026-10-01" || r.Sources[1].BrokenSince != "" {
		t.Errorf("BrokenSince = %q, %q", r.Sources[0].BrokenSince, r.Sources[1].BrokenSince)
	}
	if got := FromReport(r); !reflect.DeepEqual(got, next) {
		t.Errorf("FromReport = %v, want %v", got, next)
	}

	if days, ok := next.DaysBroken("old", today); !ok || days != 16 {
		t.Errorf("DaysBroken(old) = %d, %v; want 16, true", days, ok)
	}
	if _, ok := next.DaysBroken("fixed", today); ok {
		t.Error("fixed must not be broken")
	}
}

func TestBrokenDB_LoadAndParse(t *testing.T) {
	db, err := LoadBrokenDB(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadBrokenDB: %v", err)
	}
	if len(db) != 0 {
		t.Errorf("expected an empty DB, got %v", db)
	}

	db, err = ParseBrokenDB([]byte(`{"a": "2026-01-02", "b": "yesterday"}`))
	if err != nil {
		t.Fatalf("ParseBrokenDB: %v", err)
	}
	if want := (BrokenDB{"a": "2026-01-02"}); !reflect.DeepEqual(db, want) {
		t.Errorf("ParseBrokenDB = %v, want %v", db, want)
	}

	data, err := db.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := "{\n  \"a\": \"2026-01-02\"\n}\n"; string(data) != want {
		t.Errorf("Marshal = %q, want %q", data, want)
	}

	if _, err := ParseBrokenDB([]byte(`[`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestSummarizeAndReasons(t *testing.T) {
	r := reportOf(
		result("a", "europe/ch/a.geojson", checks.StatusError, "HTTP Code 404 for https://a.test/x"),
		result("b", "europe/de/b.geojson", checks.StatusError, "HTTP Code 404 for https://b.test/y"),
		result("c", "asia/c.geojson", checks.StatusError, "No zoom level reachable. (Tested: 0, 22)"),
		result("d", "asia/d.geojson", checks.StatusGood),
	)

	s := Summarize(r)
	if s.Sources != 4 {
		t.Errorf("Sources = %d, want 4", s.Sources)
	}
	if got, want := s.PerCheck[checks.IDImagery], (StatusCounts{Good: 1, Error: 3}); got != want {
		t.Errorf("PerCheck[imagery] = %+v, want %+v", got, want)
	}
	if len(s.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %+v", s.Regions)
	}
	if s.Regions[0].Region != "asia" || !reflect.DeepEqual(s.Regions[0].Broken, []string{"c"}) {
		t.Errorf("unexpected first region: %+v", s.Regions[0])
	}
	if !reflect.DeepEqual(s.Regions[1].Broken, []string{"a", "b"}) {
		t.Errorf("unexpected second region: %+v", s.Regions[1])
	}

	reasons := TopFailureReasons(r, checks.IDImagery, 5)
	want := []ReasonCount{
		{Reason: "HTTP Code 404 for <url>", Count: 2},
		{Reason: "No zoom level reachable.", Count: 1},
	}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("TopFailureReasons = %+v, want %+v", reasons, want)
	}
}

func TestFormatList(t *testing.T) {
	tests := []struct {
		ids  []string
		max  int
		want string
	}{
		{ids: nil, max: 3, want: ""},
		{ids: []string{"a", "b"}, max: 3, want: "2 sources (a, b)"},
		{ids: []string{"a", "b", "c", "d"}, max: 2, want: "4 sources (a, b, +2 more)"},
	}
	for _, tt := range tests {
		if got := FormatList(tt.ids, tt.max); got != tt.want {
			t.Errorf("FormatList(%v, %d) = %q, want %q", tt.ids, tt.max, got, tt.want)
		}
	}
}
