package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"eliwatch/internal/checks"
)

func TestConsoleSink_Filtering(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name           string
		format         string
		filterStatuses []string
		input          checks.Result
		shouldWrite    bool
	}{
		{
			name:        "text - no filter - good",
			format:      "text",
			input:       checks.Result{Status: checks.StatusGood, Source: "s", CheckID: "imagery"},
			shouldWrite: true,
		},
		{
			name:           "text - filter error - input good",
			format:         "text",
			filterStatuses: []string{"error"},
			input:          checks.Result{Status: checks.StatusGood, Source: "s", CheckID: "imagery"},
			shouldWrite:    false,
		},
		{
			name:           "text - filter ERROR is case-insensitive",
			format:         "text",
			filterStatuses: []string{"ERROR"},
			input:          checks.Result{Status: checks.StatusError, Source: "s", CheckID: "imagery"},
			shouldWrite:    true,
		},
		{
			name:           "text - filter warning,error - input warning",
			format:         "text",
			filterStatuses: []string{"warning", "error"},
			input:          checks.Result{Status: checks.StatusWarning, Source: "s", CheckID: "imagery"},
			shouldWrite:    true,
		},
		{
			name:           "json - filter error - input good",
			format:         "json",
			filterStatuses: []string{"error"},
			input:          checks.Result{Status: checks.StatusGood, Source: "s", CheckID: "imagery"},
			shouldWrite:    false,
		},
		{
			name:           "json - filter error - input error",
			format:         "json",
			filterStatuses: []string{"error"},
			input:          checks.Result{Status: checks.StatusError, Source: "s", CheckID: "imagery"},
			shouldWrite:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.format, tt.filterStatuses)

			if err := sink.Write(tt.input); err != nil {
				t.Fatalf("Write error: %v", err)
			}
			if err := sink.Close(); err != nil {
				t.Fatalf("Close error: %v", err)
			}

			output := buf.String()
			switch tt.format {
			case "text":
				if got := output != ""; got != tt.shouldWrite {
					t.Fatalf("shouldWrite=%v, got output %q", tt.shouldWrite, output)
				}
			case "json":
				var results []checks.Result
				if err := json.Unmarshal([]byte(output), &results); err != nil {
					t.Fatalf("invalid json %q: %v", output, err)
				}
				if got := len(results) == 1; got != tt.shouldWrite {
					t.Fatalf("shouldWrite=%v, got %d results", tt.shouldWrite, len(results))
				}
			}
		})
	}
}

func TestConsoleSink_TextLine(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)
	res := checks.Result{
		Status:   checks.StatusError,
		Source:   "acme",
		CheckID:  "license_url",
		Messages: []string{"HTTP Code 404 for https://a.example", "Warning: redirected"},
	}
	if err := sink.Write(res); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	want := "[error] acme: license_url - HTTP Code 404 for https://a.example; Warning: redirected\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConsoleSink_TextSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)
	if err := sink.Write(sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("report must not print before Close, got %q", buf.String())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Imagery status of 2 sources",
		"europe",
		"total",
		"No zoom level reachable.",
		"Newly broken: 1 sources (acme)",
		"Added: 1 sources (basemap)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Recovered:") {
		t.Fatalf("empty delta lists must be omitted:\n%s", out)
	}
}

func TestConsoleSink_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "yaml", nil)
	if err := sink.Write(checks.Result{Status: checks.StatusGood}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if err := sink.Close(); err == nil {
		t.Fatalf("expected close error for unsupported format")
	}
}
