package fields

import (
	"context"
	"errors"
	"fmt"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

func parseWMTSLayerCount(data []byte) (int, error) {
	root, err := parseXML(data)
	if err != nil {
		return 0, errors.New("Could not parse XML.")
	}
	if root.name() == "ExceptionReport" {
		return 0, errors.New("WMTS service exception")
	}
	if root.name() != "Capabilities" {
		return 0, fmt.Errorf("No WMTS Capabilities element present: Root tag: %s", root.name())
	}
	contents := root.child("Contents")
	if contents == nil {
		return 0, errors.New("WMTS Capabilities without Contents")
	}
	n := len(contents.children("Layer"))
	if n == 0 {
		return 0, errors.New("WMTS Capabilities advertise no layers")
	}
	return n, nil
}

func (c *ImageryCheck) checkWMTS(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
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
	n, err := parseWMTSLayerCount(resp.Body)
	if err != nil {
		return checks.ErrorResult(src, c.ID(), err.Error()), nil
	}
	return checks.GoodResult(src, c.ID(), fmt.Sprintf("Found %d layers", n)), nil
}
