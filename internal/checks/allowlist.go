package checks

import (
	"fmt"
	"path"
	"strings"

	"eliwatch/internal/source"
)

// AllowList handles common allow-listing logic for checks.
// It supports allowing by source ID (exact match) and by glob pattern on the source path.
type AllowList struct {
	IDs      map[string]bool
	Patterns []string
}

// Options returns the standard configuration options for allow-listing.
func (a *AllowList) Options() []Option {
	return []Option{
		{
			Name:        "allow.ids",
			Description: "Comma-separated list of source IDs whose errors are reported as warnings. Missing required properties stay errors.",
		},
		{
			Name:        "allow.patterns",
			Description: "Comma-separated list of path patterns relative to the sources root (e.g. europe/de/*, */osm-*.geojson).",
		},
	}
}

// Configure parses the configuration options to populate the AllowList.
func (a *AllowList) Configure(opts map[string]string) {
	a.IDs = make(map[string]bool)
	a.Patterns = nil

	for _, s := range SplitOption(opts["allow.ids"]) {
		a.IDs[strings.ToLower(s)] = true
	}
	for _, s := range SplitOption(opts["allow.patterns"]) {
		// Patterns are lowercased for case-insensitive matching.
		a.Patterns = append(a.Patterns, strings.ToLower(s))
	}
}

// IsAllowed reports whether the source is allowed and which option allowed it.
func (a *AllowList) IsAllowed(src *source.Source) (bool, string) {
	if src == nil {
		return false, ""
	}

	if a.IDs[strings.ToLower(src.ID)] {
		return true, "allow.ids"
	}

	p := strings.ToLower(src.Path)
	for _, pattern := range a.Patterns {
		if matched, _ := path.Match(pattern, p); matched {
			return true, "allow.patterns"
		}
	}
	return false, ""
}

// CheckResult downgrades an error of an allowed source to a warning.
// Missing required properties stay errors.
func (a *AllowList) CheckResult(src *source.Source, result Result) Result {
	if result.Status != StatusError || result.Missing {
		return result
	}
	allowed, reason := a.IsAllowed(src)
	if !allowed {
		return result
	}
	msgs := append([]string{fmt.Sprintf("Allowed failure (Allowed by policy: %s)", reason)}, result.Messages...)
	return WarningResult(src, result.CheckID, msgs...)
}

// SplitOption splits a comma separated option value, dropping empty items.
func SplitOption(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
