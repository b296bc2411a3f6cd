package fields

import (
	"context"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

type CategoryCheck struct{}

func (c *CategoryCheck) ID() string {
	return checks.IDCategory
}

func (c *CategoryCheck) Title() string {
	return "Category Present"
}

func (c *CategoryCheck) Description() string {
	return "Verifies that the source declares a category (photo, map, historicphoto, ...). " +
		"The category text is reported as the message. No network access."
}

func (c *CategoryCheck) Evaluate(ctx context.Context, src *source.Source, _ checks.Prober) (checks.Result, error) {
	if src.Category == "" {
		return checks.MissingResult(src, c.ID(), "category"), nil
	}
	return checks.GoodResult(src, c.ID(), src.Category), nil
}

func init() {
	checks.Register(&CategoryCheck{})
}
