package fields

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

type zoomSearch struct {
	check  *ImageryCheck
	prober checks.Prober
	tmpl   string
	center source.Point

	tested   map[int]bool
	ok       map[int]bool
	reasons  map[int]string
	warnings []string
}

func (c *ImageryCheck) checkTMS(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
	if strings.Contains(src.URL, "{apikey}") {
		return checks.WarningResult(src, c.ID(), "URL requires apikey"), nil
	}

	minZoom := c.minZoomDefault
	if src.MinZoom != nil {
		minZoom = clampInt(*src.MinZoom, 0, maxSupportedZoomLevel)
	}
	maxZoom := c.maxZoomDefault
	if src.MaxZoom != nil {
		maxZoom = clampInt(*src.MaxZoom, 0, maxSupportedZoomLevel)
	}

	z := &zoomSearch{
		check:   c,
		prober:  p,
		tmpl:    resolveSwitch(src.URL),
		center:  src.Geometry.Centroid(),
		tested:  make(map[int]bool),
		ok:      make(map[int]bool),
		reasons: make(map[int]string),
	}

	// Try min_zoom, searching upwards on failure.
	reached, err := z.test(ctx, minZoom)
	if err != nil {
		return checks.Result{}, err
	}
	for zoom := minZoom + 1; !reached && zoom <= minZoom+c.zoomSearch && zoom <= maxSupportedZoomLevel; zoom++ {
		if z.tested[zoom] {
			continue
		}
		if reached, err = z.test(ctx, zoom); err != nil {
			return checks.Result{}, err
		}
	}

	// Try max_zoom, searching downwards on failure.
	if z.tested[maxZoom] {
		reached = z.ok[maxZoom]
	} else if reached, err = z.test(ctx, maxZoom); err != nil {
		return checks.Result{}, err
	}
	for zoom := maxZoom - 1; !reached && zoom >= maxZoom-c.zoomSearch && zoom >= 0; zoom-- {
		if z.tested[zoom] {
			continue
		}
		if reached, err = z.test(ctx, zoom); err != nil {
			return checks.Result{}, err
		}
	}

	return z.result(src, c.ID()), nil
}

// test fetches the tile of one zoom level. The returned error is only set
// when the run was canceled or the request budget ran out.
func (z *zoomSearch) test(ctx context.Context, zoom int) (bool, error) {
	z.tested[zoom] = true
	if err := z.check.sleep(ctx, z.check.tileDelay); err != nil {
		return false, err
	}

	x, y := tileXY(z.center, zoom)
	tileURL := expandTileURL(z.tmpl, zoom, x, y)

	resp, err := z.prober.Fetch(ctx, tileURL)
	if err != nil {
		if stop := abortError(ctx, err); stop != nil {
			return false, stop
		}
		z.reasons[zoom] = failureMessage(tileURL, err)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		z.reasons[zoom] = statusMessage(tileURL, resp.StatusCode)
		return false, nil
	}

	if problem := checkTilePayload(resp.Body, resp.Truncated); problem != "" {
		z.warnings = append(z.warnings, fmt.Sprintf("Warning: zoom %d: %s", zoom, problem))
	}
	z.ok[zoom] = true
	return true, nil
}

func (z *zoomSearch) result(src *source.Source, checkID string) checks.Result {
	var tested, failed []int
	for zoom := range z.tested {
		tested = append(tested, zoom)
		if !z.ok[zoom] {
			failed = append(failed, zoom)
		}
	}
	sort.Ints(tested)
	sort.Ints(failed)
	testedStr := joinInts(tested)

	var reasons []string
	for _, zoom := range failed {
		reasons = append(reasons, fmt.Sprintf("Zoom %d: %s", zoom, z.reasons[zoom]))
	}

	succeeded := len(tested) - len(failed)
	switch {
	case len(failed) == 0 && succeeded > 0:
		msgs := append([]string{fmt.Sprintf("Zoom levels reachable. (Tested: %s)", testedStr)}, z.warnings...)
		if len(z.warnings) > 0 {
			return checks.WarningResult(src, checkID, msgs...)
		}
		return checks.GoodResult(src, checkID, msgs...)
	case succeeded > 0:
		msgs := []string{fmt.Sprintf("Zoom level %s not reachable. (Tested: %s)", joinInts(failed), testedStr)}
		msgs = append(msgs, reasons...)
		return checks.WarningResult(src, checkID, append(msgs, z.warnings...)...)
	default:
		msgs := []string{fmt.Sprintf("No zoom level reachable. (Tested: %s)", testedStr)}
		return checks.ErrorResult(src, checkID, append(msgs, reasons...)...)
	}
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
