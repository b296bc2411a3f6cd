package fields

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

// wmsVersions are tried in order until one GetCapabilities response parses.
// The empty version lets the server pick its highest supported version.
var wmsVersions = []string{"", "1.3.0", "1.1.1", "1.1.0", "1.0.0"}

type wmsLayer struct {
	Name   string
	Title  string
	CRS    map[string]bool
	Styles map[string]bool
}

type wmsCapabilities struct {
	Version string
	Layers  map[string]*wmsLayer
}

func parseWMSCapabilities(data []byte) (*wmsCapabilities, error) {
	root, err := parseXML(data)
	if err != nil {
		return nil, errors.New("Could not parse XML.")
	}

	switch root.name() {
	case "ServiceExceptionReport", "ServiceException":
		return nil, errors.New("WMS service exception")
	case "WMT_MS_Capabilities", "WMS_Capabilities":
	default:
		return nil, fmt.Errorf("No Capabilities Element present: Root tag: %s", root.name())
	}

	version, ok := root.attr("version")
	if !ok || strings.TrimSpace(version) == "" {
		return nil, errors.New("WMS version cannot be identified.")
	}

	caps := &wmsCapabilities{
		Version: strings.TrimSpace(version),
		Layers:  make(map[string]*wmsLayer),
	}
	for _, capability := range root.descendants("Capability") {
		for _, top := range capability.children("Layer") {
			collectWMSLayers(top, nil, nil, caps.Layers)
		}
	}
	return caps, nil
}

// collectWMSLayers walks the layer tree. CRS and styles are inherited from parents.
func collectWMSLayers(n *xmlNode, crs, styles map[string]bool, out map[string]*wmsLayer) {
	layer := &wmsLayer{
		Name:   n.childText("Name"),
		Title:  n.childText("Title"),
		CRS:    copySet(crs),
		Styles: copySet(styles),
	}
	for _, tag := range []string{"CRS", "SRS"} {
		for _, e := range n.children(tag) {
			for _, code := range strings.Fields(e.text()) {
				layer.CRS[code] = true
			}
		}
	}
	for _, s := range n.children("Style") {
		if name := s.childText("Name"); name != "" {
			layer.Styles[name] = true
		}
	}

	if layer.Name != "" {
		out[layer.Name] = layer
	}
	for _, sub := range n.children("Layer") {
		collectWMSLayers(sub, layer.CRS, layer.Styles, out)
	}
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (c *ImageryCheck) checkWMS(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return checks.ErrorResult(src, c.ID(), fmt.Sprintf("Could not parse URL: %s", src.URL)), nil
	}

	args := make(map[string]string)
	for k, v := range u.Query() {
		if len(v) > 0 {
			args[strings.ToLower(k)] = v[0]
		}
	}

	layerArg, ok := args["layers"]
	if !ok || strings.TrimSpace(layerArg) == "" {
		return checks.ErrorResult(src, c.ID(), fmt.Sprintf("No layers specified in: %s", src.URL)), nil
	}

	var (
		caps     *wmsCapabilities
		failures []string
	)
	for _, version := range wmsVersions {
		label := version
		if label == "" {
			label = "default"
		}
		capURL := wmsCapabilitiesURL(u, version, args["map"])

		resp, err := fetchDocument(ctx, p, capURL)
		if err != nil {
			if stop := abortError(ctx, err); stop != nil {
				return checks.Result{}, stop
			}
			failures = append(failures, fmt.Sprintf("WMS %s: Connection Error: %s", label, failureMessage(capURL, err)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			failures = append(failures, fmt.Sprintf("WMS %s: Connection Error: %s", label, statusMessage(capURL, resp.StatusCode)))
			continue
		}
		if resp.Truncated {
			return checks.WarningResult(src, c.ID(), truncatedMessage(capURL)), nil
		}
		parsed, err := parseWMSCapabilities(resp.Body)
		if err != nil {
			failures = append(failures, fmt.Sprintf("WMS %s: Error: %v", label, err))
			continue
		}
		caps = parsed
		break
	}

	if caps == nil {
		msgs := append([]string{"Could not access GetCapabilities:"}, failures...)
		return checks.ErrorResult(src, c.ID(), msgs...), nil
	}

	var errs, warnings []string

	layers := splitTrim(layerArg)
	var missing []string
	for _, name := range layers {
		if _, ok := caps.Layers[name]; !ok {
			missing = append(missing, name)
		}
	}

	if styleArg, ok := args["styles"]; ok {
		styles := strings.Split(styleArg, ",")
		for i, name := range layers {
			style := styles[0]
			if len(styles) == len(layers) {
				style = styles[i]
			}
			style = strings.TrimSpace(style)
			// The default style need not be advertised.
			if style == "" || strings.EqualFold(style, "default") {
				continue
			}
			layer, ok := caps.Layers[name]
			if !ok {
				continue
			}
			if !layer.Styles[style] {
				errs = append(errs, fmt.Sprintf("Layer '%s' does not support style '%s'", name, style))
			}
		}
	}

	if len(missing) > 0 {
		errs = append(errs, fmt.Sprintf("Layers '%s' not present.", strings.Join(missing, ",")))
	}

	if requested, ok := args["version"]; ok && compareVersions(requested, caps.Version) < 0 {
		warnings = append(warnings, fmt.Sprintf("Query requests WMS version '%s', server supports '%s'", requested, caps.Version))
	}

	if len(errs) == 0 && len(warnings) == 0 {
		return checks.GoodResult(src, c.ID(), "Found layers"), nil
	}

	var msgs []string
	for _, m := range errs {
		msgs = append(msgs, "Error: "+m)
	}
	for _, m := range warnings {
		msgs = append(msgs, "Warning: "+m)
	}
	if len(errs) > 0 {
		return checks.ErrorResult(src, c.ID(), msgs...), nil
	}
	return checks.WarningResult(src, c.ID(), msgs...), nil
}

func (c *ImageryCheck) checkWMSEndpoint(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
	resp, err := fetchDocument(ctx, p, src.URL)
	if err != nil {
		if stop := abortError(ctx, err); stop != nil {
			return checks.Result{}, stop
		}
		return checks.ErrorResult(src, c.ID(), failureMessage(src.URL, err)), nil
	}
	if !isSuccess(resp.StatusCode) {
		return checks.ErrorResult(src, c.ID(), statusMessage(src.URL, resp.StatusCode)), nil
	}
	if resp.Truncated {
		return checks.WarningResult(src, c.ID(), truncatedMessage(src.URL)), nil
	}
	caps, err := parseWMSCapabilities(resp.Body)
	if err != nil {
		return checks.ErrorResult(src, c.ID(), err.Error()), nil
	}
	return checks.GoodResult(src, c.ID(), fmt.Sprintf("Found %d layers (WMS %s)", len(caps.Layers), caps.Version)), nil
}

// wmsCapabilitiesURL replaces the query of u with a GetCapabilities request.
// Some servers only answer when the map parameter is forwarded.
func wmsCapabilitiesURL(u *url.URL, version, mapArg string) string {
	q := url.Values{}
	q.Set("service", "WMS")
	q.Set("request", "GetCapabilities")
	if version != "" {
		q.Set("version", version)
	}
	if mapArg != "" {
		q.Set("map", mapArg)
	}
	out := *u
	out.RawQuery = q.Encode()
	out.Fragment = ""
	return out.String()
}

// compareVersions compares dotted numeric versions, returning -1, 0 or 1.
func compareVersions(a, b string) int {
	pa := strings.Split(strings.TrimSpace(a), ".")
	pb := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func splitTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
