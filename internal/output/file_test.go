package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eliwatch/internal/report"
)

func TestFileSink_WritesOnCloseOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web", "results.json")
	s, err := NewSnapshotSink(path)
	if err != nil {
		t.Fatalf("NewSnapshotSink returned error: %v", err)
	}

	if err := s.Write(sampleReport()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file before Close, stat err = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	got, err := report.LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot returned error: %v", err)
	}
	if got == nil || len(got.Sources) != 2 || got.RunID != "run-1" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestFileSink_NoReportNoArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	s, err := NewHTMLSink(path, "")
	if err != nil {
		t.Fatalf("NewHTMLSink returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no artifact for a run without report, stat err = %v", err)
	}
}

func TestFileSink_RequiresPath(t *testing.T) {
	if _, err := NewSnapshotSink(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := NewFileSink("x.json", nil); err == nil {
		t.Fatalf("expected error for nil render func")
	}
}

func TestFileSink_WriteFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewSnapshotSink(filepath.Join(blocker, "results.json"))
	if err != nil {
		t.Fatalf("NewSnapshotSink returned error: %v", err)
	}
	_ = s.Write(sampleReport())
	if err := s.Close(); err == nil {
		t.Fatalf("expected error writing below a regular file")
	}
}

func TestBrokenSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	s, err := NewBrokenSink(path)
	if err != nil {
		t.Fatalf("NewBrokenSink returned error: %v", err)
	}
	_ = s.Write(sampleReport())
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	db, err := report.LoadBrokenDB(path)
	if err != nil {
		t.Fatalf("LoadBrokenDB returned error: %v", err)
	}
	if len(db) != 1 || db["acme"] != "2026-10-10" {
		t.Fatalf("unexpected broken db: %v", db)
	}
}

func TestRenderHTML(t *testing.T) {
	r := sampleReport()
	first, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	second, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("rendering the same report twice must be byte-identical")
	}

	page := string(first)
	for _, want := range []string{
		`<h3 id="europe-ch">europe / ch</h3>`,
		`href="#europe-ch"`,
		`<td class="table-danger">Missing license_url</td>`,
		`<td class="table-success">photo</td>`,
		`<td class="table-danger">Missing category</td>`,
		`<td class="table-danger">No zoom level reachable. (Tested: 0, 22)<br>Zoom 0: Exception connection refused for: http://dead.example/tile</td>`,
		`href="https://github.com/osmlab/editor-layer-index/tree/gh-pages/sources/europe/ch/acme.geojson"`,
		`broken since 2026-10-10`,
		`Newly broken: acme`,
		`basemap &lt;CH&gt;`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(page, "Recovered:") {
		t.Fatalf("empty delta lists must not render")
	}

	acme := strings.Index(page, "Acme Aerial")
	basemap := strings.Index(page, "basemap &lt;CH&gt;")
	if acme < 0 || basemap < 0 || acme > basemap {
		t.Fatalf("entries must be ordered by name case-insensitively")
	}
}

func TestRenderHTML_InputOrderIndependent(t *testing.T) {
	a := sampleReport()
	b := sampleReport()
	b.Sources[0], b.Sources[1] = b.Sources[1], b.Sources[0]

	pa, err := RenderHTML(a)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := RenderHTML(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pa, pb) {
		t.Fatalf("page must not depend on source order")
	}
}

func TestHTMLSink_CustomRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	s, err := NewHTMLSink(path, "https://mirror.example/sources")
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Write(sampleReport())
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `href="https://mirror.example/sources/europe/ch/acme.geojson"`) {
		t.Fatalf("expected links to the configured registry")
	}
}
