package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/config"
	"eliwatch/internal/fetcher"
	"eliwatch/internal/source"

	_ "eliwatch/internal/checks/fields"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type fakeCheck struct {
	id   string
	eval func(ctx context.Context, src *source.Source) (checks.Result, error)
}

func (c *fakeCheck) ID() string          { return c.id }
func (c *fakeCheck) Title() string       { return "Fake" }
func (c *fakeCheck) Description() string { return "Fake check" }
func (c *fakeCheck) Evaluate(ctx context.Context, src *source.Source, _ checks.Prober) (checks.Result, error) {
	return c.eval(ctx, src)
}

type fakeProber struct {
	handler func(rawURL string) (*fetcher.Response, error)
}

func (p *fakeProber) Fetch(_ context.Context, rawURL string) (*fetcher.Response, error) {
	if p.handler == nil {
		return nil, &fetcher.Error{URL: rawURL, Kind: fetcher.KindRefused}
	}
	return p.handler(rawURL)
}

func testSource(path, id string) *source.Source {
	src, err := source.Parse(path, []byte(`{"type":"Feature","properties":{"id":"`+id+`","name":"`+id+`"},"geometry":null}`))
	if err != nil {
		panic(err)
	}
	return src
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// newTestConfig returns a validated config writing every artifact below out.
func newTestConfig(t *testing.T, sourcesDir, out string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Input.SourcesDir = sourcesDir
	cfg.Output.NoConsole = true
	cfg.Output.Out = filepath.Join(out, "results.json")
	cfg.Output.HTML = filepath.Join(out, "index.html")
	cfg.Output.Broken = filepath.Join(out, "broken.json")
	cfg.Output.Report = filepath.Join(out, "summary.md")
	cfg.Output.MetricsOut = filepath.Join(out, "eliwatch.prom")
	cfg.Runtime.RequestTimeout = 5 * time.Second
	cfg.Checks.Set = []string{"imagery.tile_delay=0s"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func newTestEngine() (*Engine, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	e := NewEngine(nil)
	e.Stdout = &stdout
	e.Stderr = &stderr
	e.Now = func() time.Time { return testNow }
	e.NewRunID = func() string { return "run-1" }
	return e, &stdout, &stderr
}
