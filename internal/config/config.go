package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"eliwatch/internal/fetcher"
	"eliwatch/internal/logging"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect the
	// audit, keep these in sync:
	// - CLI flags in internal/cli/check.go
	// - file keys in internal/config/file.go
	// - environment keys in internal/config/env.go
	Input   Input
	Checks  Checks
	Output  Output
	Runtime Runtime
}

type Input struct {
	// SourcesDir is the root of the sources tree (positional argument of `check`).
	SourcesDir string

	// Include keeps only sources whose path or ID matches one of these path.Match
	// patterns (see --include).
	Include []string

	// Exclude drops sources whose path or ID matches (see --exclude).
	Exclude []string

	// Country keeps only sources stored under these country directories (see --country).
	Country []string

	// MaxSources limits how many sources are checked (see --max-sources). 0 means unlimited.
	MaxSources int

	// DryRun loads and filters sources and prints the plan without fetching anything.
	DryRun bool
}

type Checks struct {
	// Selector selects which checks to run; empty means all (see --checks).
	Selector string

	// Set provides per-check option overrides.
	// Entries are of the form checkID.option=value (repeatable; comma-separated accepted; see --set).
	Set []string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by result status (see --console-filter-status).
	// Allowed values: good, warning, error.
	ConsoleFilterStatus []string

	// Out is the JSON snapshot path (see --out).
	Out string

	// HTML is the rendered page path (see --html). Empty disables the page.
	HTML string

	// Broken is the broken-since database path (see --broken). Empty disables it.
	Broken string

	// BaselineURL downloads the previous broken database instead of reading Broken.
	BaselineURL string

	// RegistryURL prefixes source paths in the HTML links (see --registry-url).
	RegistryURL string

	// Report writes a Markdown run summary to this path (see --report).
	Report string

	// MetricsOut writes a Prometheus textfile to this path (see --metrics-out).
	MetricsOut string

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Concurrency is the number of sources checked in parallel (see --concurrency).
	// 1 checks one source at a time.
	Concurrency int

	// Timeout is the global deadline of the run (see --timeout).
	Timeout time.Duration

	// RequestTimeout bounds each network call (see --request-timeout).
	RequestTimeout time.Duration

	// MaxRequests caps the number of network requests of a run (see --max-requests).
	// 0 means unlimited.
	MaxRequests int

	// UserAgent is sent with every request (see --user-agent).
	UserAgent string

	// LogLevel is the zap level for diagnostics on stderr (see --log-level).
	LogLevel string

	// Verbose is shorthand for --log-level=debug.
	Verbose bool
}

const (
	DefaultOut    = "web/results.json"
	DefaultHTML   = "web/index.html"
	DefaultBroken = "web/broken.json"
)

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
			Out:           DefaultOut,
			HTML:          DefaultHTML,
			Broken:        DefaultBroken,
		},
		Runtime: Runtime{
			Concurrency:    1,
			Timeout:        2 * time.Hour,
			RequestTimeout: fetcher.DefaultTimeout,
			UserAgent:      fetcher.DefaultUserAgent,
			LogLevel:       logging.DefaultLevel,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Input.Include = splitCommaList(c.Input.Include)
	c.Input.Exclude = splitCommaList(c.Input.Exclude)
	c.Input.Country = splitCommaList(c.Input.Country)
	c.Checks.Set = splitAssignments(c.Checks.Set)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	if strings.TrimSpace(c.Input.SourcesDir) == "" {
		return errors.New("a sources directory must be provided")
	}
	for _, p := range append(append([]string{}, c.Input.Include...), c.Input.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	if c.Input.MaxSources < 0 {
		return errors.New("--max-sources must be >= 0")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}
	for i, st := range c.Output.ConsoleFilterStatus {
		v := normalizeEnumValue(st)
		if v != "good" && v != "warning" && v != "error" {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: good, warning, error)", st)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v == "" {
			return errors.New("--emit must be one of: json, ndjson")
		}
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
	}

	if strings.TrimSpace(c.Output.Out) == "" {
		return errors.New("--out must not be empty")
	}
	if c.Output.BaselineURL != "" {
		u, err := url.Parse(c.Output.BaselineURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --baseline-url: %q", c.Output.BaselineURL)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.RequestTimeout <= 0 {
		return errors.New("--request-timeout must be > 0")
	}
	if c.Runtime.MaxRequests < 0 {
		return errors.New("--max-requests must be >= 0")
	}
	if c.Runtime.Verbose {
		c.Runtime.LogLevel = "debug"
	}
	c.Runtime.LogLevel = normalizeEnumValue(c.Runtime.LogLevel)
	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = logging.DefaultLevel
	}
	switch c.Runtime.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported --log-level: %s (must be one of: debug, info, warn, error)", c.Runtime.LogLevel)
	}

	// Check option syntax validation (check.option=value)
	if len(c.Checks.Set) > 0 {
		if _, err := ParseCheckOptionAssignments(c.Checks.Set); err != nil {
			return err
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseCheckOptionAssignments parses values of the form "checkID.option=value".
//
// Notes:
//   - Entries may be provided via repeated flags and/or comma-delimited lists. A
//     segment without "check.option=" continues the previous value, so list
//     options survive: "license_url.soft_keywords=a,b".
//   - Option names may contain dots ("imagery.allow.ids=a"); the check ID ends at the first dot.
//   - Later entries override earlier ones.
//   - This validates syntax only (no validation of check IDs or option names).
//   - Empty values are allowed ("check.option=").
func ParseCheckOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range splitAssignments(values) {
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected check.option=value", raw)
		}
		value = strings.TrimSpace(value)
		checkID, opt, ok := strings.Cut(strings.TrimSpace(left), ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected check.option=value", raw)
		}
		checkID = strings.TrimSpace(checkID)
		opt = strings.TrimSpace(opt)
		if checkID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty check and option", raw)
		}
		if _, ok := out[checkID]; !ok {
			out[checkID] = make(map[string]string)
		}
		out[checkID][opt] = value
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// splitAssignments splits comma-delimited --set values, rejoining segments that
// do not start a new check.option=value assignment with the previous one.
func splitAssignments(values []string) []string {
	var out []string
	for _, v := range values {
		start := len(out)
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if len(out) > start && !startsAssignment(p) {
				out[len(out)-1] += "," + p
				continue
			}
			if p == "" {
				continue
			}
			out = append(out, p)
		}
		for i := start; i < len(out); i++ {
			out[i] = strings.TrimRight(out[i], ",")
		}
	}
	return out
}

func startsAssignment(s string) bool {
	left, _, ok := strings.Cut(s, "=")
	return ok && strings.Contains(left, ".") && !strings.ContainsAny(left, " ")
}
