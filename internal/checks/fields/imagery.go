package fields

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

const (
	defaultMaxAgeYears    = 30
	defaultMinZoom        = 0
	defaultMaxZoom        = 22
	defaultZoomSearch     = 3
	defaultTileDelay      = 500 * time.Millisecond
	maxSupportedZoomLevel = 30
)

// ImageryCheck probes the imagery endpoint of a source according to its type.
type ImageryCheck struct {
	maxAgeYears    int
	minZoomDefault int
	maxZoomDefault int
	zoomSearch     int
	tileDelay      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewImageryCheck() *ImageryCheck {
	c := &ImageryCheck{
		now:   time.Now,
		sleep: sleepContext,
	}
	c.setDefaults()
	return c
}

func (c *ImageryCheck) setDefaults() {
	c.maxAgeYears = defaultMaxAgeYears
	c.minZoomDefault = defaultMinZoom
	c.maxZoomDefault = defaultMaxZoom
	c.zoomSearch = defaultZoomSearch
	c.tileDelay = defaultTileDelay
}

func (c *ImageryCheck) ID() string {
	return checks.IDImagery
}

func (c *ImageryCheck) Title() string {
	return "Imagery Reachable"
}

func (c *ImageryCheck) Description() string {
	return "Verifies that the imagery endpoint of the source answers.\n\n" +
		"- tms: requests tiles at the centroid of the coverage for min_zoom and max_zoom, " +
		"searching up to zoom_search levels inward when a level fails.\n" +
		"- wms: requests GetCapabilities (no version, then 1.3.0, 1.1.1, 1.1.0, 1.0.0) and verifies " +
		"the requested layers, styles and version.\n" +
		"- wms_endpoint: the URL must return WMS capabilities.\n" +
		"- wmts: the URL must return WMTS capabilities with at least one layer.\n\n" +
		"Sources whose end_date is older than max_age_years and other source types are not checked."
}

func (c *ImageryCheck) Options() []checks.Option {
	return []checks.Option{
		{
			Name:        "max_age_years",
			Description: "Sources whose end_date lies more than this many years in the past are not probed.",
			Default:     strconv.Itoa(defaultMaxAgeYears),
		},
		{
			Name:        "min_zoom_default",
			Description: "Zoom level probed when a tms source has no min_zoom.",
			Default:     strconv.Itoa(defaultMinZoom),
		},
		{
			Name:        "max_zoom_default",
			Description: "Zoom level probed when a tms source has no max_zoom.",
			Default:     strconv.Itoa(defaultMaxZoom),
		},
		{
			Name:        "zoom_search",
			Description: "Number of additional zoom levels tried inward when min_zoom or max_zoom fails.",
			Default:     strconv.Itoa(defaultZoomSearch),
		},
		{
			Name:        "tile_delay",
			Description: "Pause before each tile request (Go duration, e.g. 500ms).",
			Default:     defaultTileDelay.String(),
		},
	}
}

func (c *ImageryCheck) Configure(opts map[string]string) error {
	c.setDefaults()

	if err := intOption(opts, "max_age_years", &c.maxAgeYears, 0); err != nil {
		return err
	}
	if err := intOption(opts, "min_zoom_default", &c.minZoomDefault, 0); err != nil {
		return err
	}
	if err := intOption(opts, "max_zoom_default", &c.maxZoomDefault, 0); err != nil {
		return err
	}
	if err := intOption(opts, "zoom_search", &c.zoomSearch, 0); err != nil {
		return err
	}
	if err := durationOption(opts, "tile_delay", &c.tileDelay); err != nil {
		return err
	}
	if c.minZoomDefault > maxSupportedZoomLevel || c.maxZoomDefault > maxSupportedZoomLevel {
		return fmt.Errorf("zoom defaults must be <= %d", maxSupportedZoomLevel)
	}
	return nil
}

func (c *ImageryCheck) Evaluate(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
	if strings.TrimSpace(src.URL) == "" {
		return checks.MissingResult(src, c.ID(), "url"), nil
	}

	if age, ok := c.ageYears(src.EndDate); ok && age > c.maxAgeYears {
		return checks.WarningResult(src, c.ID(), fmt.Sprintf("Not checked due to age: %d years", age)), nil
	}

	var (
		res checks.Result
		err error
	)
	switch strings.ToLower(src.Type) {
	case "tms":
		res, err = c.checkTMS(ctx, src, p)
	case "wms":
		res, err = c.checkWMS(ctx, src, p)
	case "wms_endpoint":
		res, err = c.checkWMSEndpoint(ctx, src, p)
	case "wmts":
		res, err = c.checkWMTS(ctx, src, p)
	default:
		return checks.NotCheckedResult(src, c.ID()), nil
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return res, err
}

// ageYears returns how many calendar years ago the end date's year was.
func (c *ImageryCheck) ageYears(endDate string) (int, bool) {
	year, _, _ := strings.Cut(strings.TrimSpace(endDate), "-")
	if year == "" {
		return 0, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, false
	}
	return c.now().Year() - y, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func init() {
	checks.Register(NewImageryCheck())
}
