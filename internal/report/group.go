package report

import (
	"sort"
	"strings"
)

// CountryGroup is the set of sources rendered under one (region, country) heading.
type CountryGroup struct {
	Region  string
	Country string
	Anchor  string
	Sources []SourceResult
}

type CountryLink struct {
	Name   string
	Anchor string
}

type RegionMenu struct {
	Name      string
	Countries []CountryLink
}

// GroupByCountry groups results by (region, country). Groups are ordered by
// region then country, entries by name and then path, all case-insensitive,
// so the output does not depend on input order. Duplicates are kept.
func GroupByCountry(results []SourceResult) []CountryGroup {
	type key struct{ region, country string }
	byKey := make(map[key]*CountryGroup)
	var keys []key

	for _, r := range results {
		k := key{region: r.Region(), country: r.Country()}
		g, ok := byKey[k]
		if !ok {
			g = &CountryGroup{Region: k.region, Country: k.country, Anchor: Anchor(k.region, k.country)}
			byKey[k] = g
			keys = append(keys, k)
		}
		g.Sources = append(g.Sources, r)
	}

	sort.Slice(keys, func(i, j int) bool {
		if c := compareFold(keys[i].region, keys[j].region); c != 0 {
			return c < 0
		}
		return compareFold(keys[i].country, keys[j].country) < 0
	})

	out := make([]CountryGroup, 0, len(keys))
	for _, k := range keys {
		g := byKey[k]
		sort.SliceStable(g.Sources, func(i, j int) bool {
			a, b := g.Sources[i], g.Sources[j]
			if c := compareFold(a.Name, b.Name); c != 0 {
				return c < 0
			}
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			return a.ID < b.ID
		})
		out = append(out, *g)
	}
	return out
}

// Menu lists the countries of each region in group order.
func Menu(groups []CountryGroup) []RegionMenu {
	var out []RegionMenu
	for _, g := range groups {
		if len(out) == 0 || out[len(out)-1].Name != g.Region {
			out = append(out, RegionMenu{Name: g.Region})
		}
		last := &out[len(out)-1]
		last.Countries = append(last.Countries, CountryLink{Name: g.Country, Anchor: g.Anchor})
	}
	return out
}

// Anchor builds an HTML id for a region/country pair.
func Anchor(region, country string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(region + "-" + country) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// compareFold compares case-insensitively, falling back to a byte comparison
// so distinct strings never compare equal.
func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
