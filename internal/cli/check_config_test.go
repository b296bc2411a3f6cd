package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"eliwatch/internal/config"
	"eliwatch/internal/flags"
)

func TestLoadLayeredConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eliwatch.yaml")
	data := []byte(`
runtime:
  concurrency: 4
  timeout: 30m
  max_requests: 500
output:
  html: ""
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ELIWATCH_TIMEOUT", "90")

	c := config.New()
	c.Input.SourcesDir = dir
	cmd := &cobra.Command{Use: "check"}
	cmd.Flags().IntVar(&c.Runtime.Concurrency, flags.FlagConcurrency, c.Runtime.Concurrency, "")
	if err := cmd.Flags().Set(flags.FlagConcurrency, "2"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	if err := loadLayeredConfig(cmd, c, path); err != nil {
		t.Fatalf("loadLayeredConfig: %v", err)
	}
	if c.Runtime.Concurrency != 2 {
		t.Errorf("flag should win: concurrency=%d", c.Runtime.Concurrency)
	}
	if c.Runtime.Timeout != 90*time.Second {
		t.Errorf("environment should beat the file: timeout=%s", c.Runtime.Timeout)
	}
	if c.Output.HTML != "" {
		t.Errorf("file should disable the page: html=%q", c.Output.HTML)
	}
	if c.Output.Out != config.DefaultOut {
		t.Errorf("default expected for out, got %q", c.Output.Out)
	}
}

func TestLoadLayeredConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	badFile := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badFile, []byte("runtime:\n  unknown_key: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tests := []struct {
		name string
		path string
		dir  string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.yaml"), dir: dir},
		{name: "unknown key", path: badFile, dir: dir},
		{name: "no sources dir", dir: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.New()
			c.Input.SourcesDir = tt.dir
			cmd := &cobra.Command{Use: "check"}
			if err := loadLayeredConfig(cmd, c, tt.path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
