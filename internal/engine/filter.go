package engine

import (
	"path"
	"strings"

	"eliwatch/internal/config"
	"eliwatch/internal/source"
)

// FilterSources applies --include, --exclude, --country and --max-sources.
// The input order is kept.
func FilterSources(srcs []*source.Source, cfg *config.Config) []*source.Source {
	if cfg == nil {
		panic("engine.FilterSources: cfg must not be nil")
	}

	var filtered []*source.Source

	includePatterns := cfg.Input.Include
	excludePatterns := cfg.Input.Exclude
	countries := cfg.Input.Country

	for _, s := range srcs {
		if s == nil {
			continue
		}

		// Country directory or country code
		if len(countries) > 0 && !matchesAnyCountry(countries, s) {
			continue
		}

		// If Include is set, must match at least one
		if len(includePatterns) > 0 && !matchesAnyPattern(includePatterns, s) {
			continue
		}

		// If Exclude is set, must not match any
		if len(excludePatterns) > 0 && matchesAnyPattern(excludePatterns, s) {
			continue
		}

		filtered = append(filtered, s)
	}

	if cfg.Input.MaxSources > 0 && len(filtered) > cfg.Input.MaxSources {
		filtered = filtered[:cfg.Input.MaxSources]
	}

	return filtered
}

func matchesAnyCountry(countries []string, s *source.Source) bool {
	for _, c := range countries {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.EqualFold(c, s.Country()) || strings.EqualFold(c, s.CountryCode) {
			return true
		}
	}
	return false
}

func matchesAnyPattern(patterns []string, s *source.Source) bool {
	for _, p := range patterns {
		if matchPattern(p, s) {
			return true
		}
	}
	return false
}

func matchPattern(pattern string, s *source.Source) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// Patterns with a directory component match the relative path, so
	// "europe/ch/*" works. Otherwise match the ID or the file name.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, s.Path)
		return matched
	}
	if matched, _ := path.Match(pattern, s.ID); matched {
		return true
	}
	matched, _ := path.Match(pattern, s.Filename)
	return matched
}
