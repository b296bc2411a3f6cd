// Package source loads imagery-source entries from an editor-layer-index style
// sources tree. Each *.geojson file holds one GeoJSON Feature describing a provider.
package source

import "strings"

// WorldRegion labels sources stored directly in the sources root.
const WorldRegion = "world"

// Source is a single registry entry. It is loaded once per run and never mutated.
type Source struct {
	ID               string
	Name             string
	Type             string
	URL              string
	Category         string
	LicenseURL       string
	PrivacyPolicyURL string
	CountryCode      string
	StartDate        string
	EndDate          string
	MinZoom          *int
	MaxZoom          *int

	// Geometry is nil when the feature covers the whole world.
	Geometry *Geometry

	// Path is the slash separated path relative to the sources root.
	Path      string
	Directory []string
	Filename  string
}

// Region is the first directory below the sources root.
func (s *Source) Region() string {
	if s == nil {
		return WorldRegion
	}
	return RegionOf(s.Directory)
}

// Country is the second directory below the sources root.
func (s *Source) Country() string {
	if s == nil {
		return WorldRegion
	}
	return CountryOf(s.Directory)
}

// RegionOf returns the region label of a source directory.
func RegionOf(directory []string) string {
	if len(directory) == 0 {
		return WorldRegion
	}
	return directory[0]
}

// CountryOf returns the country label of a source directory. Sources stored
// directly in a region directory use the region as their country.
func CountryOf(directory []string) string {
	switch len(directory) {
	case 0:
		return WorldRegion
	case 1:
		return directory[0]
	default:
		return directory[1]
	}
}

// DisplayName returns the name, falling back to the ID.
func (s *Source) DisplayName() string {
	if s == nil {
		return ""
	}
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return s.ID
}

// Key identifies a source in results and the broken DB.
func (s *Source) Key() string {
	if s == nil {
		return ""
	}
	if s.ID != "" {
		return s.ID
	}
	return s.Path
}
