package fields

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"regexp"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"eliwatch/internal/source"
)

const maxMercatorLat = 85.0511287798066

var switchPattern = regexp.MustCompile(`\{switch:([^}]*)\}`)

// resolveSwitch replaces a {switch:a,b,c} placeholder with its first value.
func resolveSwitch(tmpl string) string {
	return switchPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		values := switchPattern.FindStringSubmatch(m)[1]
		first, _, _ := strings.Cut(values, ",")
		return strings.TrimSpace(first)
	})
}

// tileXY returns the slippy-map tile containing p at zoom.
func tileXY(p source.Point, zoom int) (int, int) {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	lon := math.Max(-180, math.Min(180, p.Lon))
	n := math.Exp2(float64(zoom))

	x := int(math.Floor((lon + 180) / 360 * n))
	latRad := lat * math.Pi / 180
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	limit := int(n) - 1
	return clampInt(x, 0, limit), clampInt(y, 0, limit)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// expandTileURL fills the zoom, x and y placeholders of a TMS template.
// {-y} is the flipped TMS row, {!y} the half-height flip some servers use.
func expandTileURL(tmpl string, zoom, x, y int) string {
	z := strconv.Itoa(zoom)
	flipped := (1 << zoom) - 1 - y
	half := (1<<zoom)/2 - 1 - y
	return strings.NewReplacer(
		"{zoom}", z,
		"{z}", z,
		"{x}", strconv.Itoa(x),
		"{-y}", strconv.Itoa(flipped),
		"{!y}", strconv.Itoa(half),
		"{y}", strconv.Itoa(y),
	).Replace(tmpl)
}

// checkTilePayload reports why a tile body is not a usable image, or "" when it decodes.
func checkTilePayload(body []byte, truncated bool) string {
	if truncated {
		return ""
	}
	if len(body) == 0 {
		return "empty tile"
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(body)); err != nil {
		return fmt.Sprintf("tile is not a decodable image: %v", err)
	}
	return ""
}
