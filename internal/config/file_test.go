package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"eliwatch/internal/flags"
)

const sampleFile = `
input:
  country: [ch, de]
checks:
  selector: imagery,category
  options:
    imagery:
      tile_delay: 0s
      zoom_search: 2
    license_url:
      soft_keywords: "for sale,parked"
output:
  html: public/index.html
  baseline_url: https://example.org/broken.json
runtime:
  concurrency: 4
  request_timeout: 10s
`

func TestParseFile_Apply(t *testing.T) {
	f, err := ParseFile([]byte(sampleFile))
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}

	cfg := validConfig()
	cfg.Checks.Set = []string{"imagery.zoom_search=5"}
	f.Apply(cfg, func(flag string) bool { return flag == flags.FlagConcurrency })

	if cfg.Runtime.Concurrency != 1 {
		t.Fatalf("explicit flags must win over the file, got %d", cfg.Runtime.Concurrency)
	}
	if cfg.Runtime.RequestTimeout != 10*time.Second {
		t.Fatalf("expected request timeout from file, got %v", cfg.Runtime.RequestTimeout)
	}
	if cfg.Output.HTML != "public/index.html" || cfg.Output.BaselineURL != "https://example.org/broken.json" {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Output.Out != DefaultOut {
		t.Fatalf("unset keys must keep defaults, got %q", cfg.Output.Out)
	}
	if cfg.Checks.Selector != "imagery,category" {
		t.Fatalf("unexpected selector %q", cfg.Checks.Selector)
	}
	if !reflect.DeepEqual(cfg.Input.Country, []string{"ch", "de"}) {
		t.Fatalf("unexpected countries %v", cfg.Input.Country)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	opts, err := ParseCheckOptionAssignments(cfg.Checks.Set)
	if err != nil {
		t.Fatalf("ParseCheckOptionAssignments returned error: %v", err)
	}
	if opts["imagery"]["zoom_search"] != "5" {
		t.Fatalf("--set must override file options, got %v", opts)
	}
	if opts["imagery"]["tile_delay"] != "0s" {
		t.Fatalf("expected file option, got %v", opts)
	}
	if opts["license_url"]["soft_keywords"] != "for sale,parked" {
		t.Fatalf("expected list option from file, got %v", opts)
	}
}

func TestParseFile_RejectsUnknownKeys(t *testing.T) {
	if _, err := ParseFile([]byte("runtime:\n  concurency: 3\n")); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseFile_Empty(t *testing.T) {
	f, err := ParseFile(nil)
	if err != nil {
		t.Fatalf("empty file must parse, got %v", err)
	}
	cfg := validConfig()
	f.Apply(cfg, nil)
	if !reflect.DeepEqual(cfg, validConfig()) {
		t.Fatalf("empty file must not change the config")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eliwatch.yaml")
	if err := os.WriteFile(path, []byte(sampleFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
