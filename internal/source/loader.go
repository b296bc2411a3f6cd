package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Extension is the file extension of source entries.
const Extension = ".geojson"

// LoadError reports a source file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load source %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load walks root and parses every *.geojson file below it. Files are returned
// in lexical path order. Any unreadable or malformed file fails the load.
func Load(root string) ([]*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open sources directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sources path %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), Extension) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk sources directory: %w", err)
	}
	sort.Strings(files)

	var (
		sources []*Source
		errs    []error
	)
	for _, p := range files {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			errs = append(errs, &LoadError{Path: p, Err: err})
			continue
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, &LoadError{Path: rel, Err: err})
			continue
		}
		src, err := Parse(rel, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sources, nil
}

// Parse decodes a single GeoJSON feature. relPath is the slash separated path
// of the file relative to the sources root.
func Parse(relPath string, data []byte) (*Source, error) {
	if !gjson.ValidBytes(data) {
		return nil, &LoadError{Path: relPath, Err: errors.New("invalid JSON")}
	}
	doc := gjson.ParseBytes(data)

	props := doc.Get("properties")
	if !props.IsObject() {
		return nil, &LoadError{Path: relPath, Err: errors.New("missing properties object")}
	}

	geom, err := parseGeometry(doc.Get("geometry"))
	if err != nil {
		return nil, &LoadError{Path: relPath, Err: err}
	}

	dir, file := path.Split(relPath)
	directory := []string{}
	if dir = strings.Trim(dir, "/"); dir != "" {
		directory = strings.Split(dir, "/")
	}

	src := &Source{
		ID:               strings.TrimSpace(props.Get("id").String()),
		Name:             props.Get("name").String(),
		Type:             strings.TrimSpace(props.Get("type").String()),
		URL:              strings.TrimSpace(props.Get("url").String()),
		Category:         strings.TrimSpace(props.Get("category").String()),
		LicenseURL:       strings.TrimSpace(props.Get("license_url").String()),
		PrivacyPolicyURL: strings.TrimSpace(props.Get("privacy_policy_url").String()),
		CountryCode:      props.Get("country_code").String(),
		StartDate:        props.Get("start_date").String(),
		EndDate:          strings.TrimSpace(props.Get("end_date").String()),
		MinZoom:          optionalInt(props.Get("min_zoom")),
		MaxZoom:          optionalInt(props.Get("max_zoom")),
		Geometry:         geom,
		Path:             relPath,
		Directory:        directory,
		Filename:         file,
	}
	if src.ID == "" {
		src.ID = strings.TrimSuffix(file, path.Ext(file))
	}
	return src, nil
}

func optionalInt(v gjson.Result) *int {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	n := int(v.Int())
	return &n
}

func parseGeometry(v gjson.Result) (*Geometry, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}

	coords := v.Get("coordinates")
	switch t := v.Get("type").String(); t {
	case "Polygon":
		return &Geometry{Polygons: []Polygon{parsePolygon(coords)}}, nil
	case "MultiPolygon":
		g := &Geometry{}
		for _, poly := range coords.Array() {
			g.Polygons = append(g.Polygons, parsePolygon(poly))
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", t)
	}
}

func parsePolygon(v gjson.Result) Polygon {
	var poly Polygon
	for _, ring := range v.Array() {
		var pts []Point
		for _, pt := range ring.Array() {
			xy := pt.Array()
			if len(xy) < 2 {
				continue
			}
			pts = append(pts, Point{Lon: xy[0].Float(), Lat: xy[1].Float()})
		}
		poly = append(poly, pts)
	}
	return poly
}
