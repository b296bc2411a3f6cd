package checks

import (
	"context"

	"eliwatch/internal/fetcher"
	"eliwatch/internal/source"
)

// IDs of the checks every source result carries.
const (
	IDImagery          = "imagery"
	IDLicenseURL       = "license_url"
	IDPrivacyPolicyURL = "privacy_policy_url"
	IDCategory         = "category"
)

// RequiredIDs lists the checks reported for every source, in display order.
var RequiredIDs = []string{IDImagery, IDLicenseURL, IDPrivacyPolicyURL, IDCategory}

// Prober performs network probes for checks. *fetcher.Fetcher implements it.
type Prober interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

type Check interface {
	ID() string
	Title() string
	Description() string

	// Evaluate inspects one source. Per-field problems are reported in the
	// Result; a returned error means the check itself could not run.
	Evaluate(ctx context.Context, src *source.Source, p Prober) (Result, error)
}

type Option struct {
	Name        string
	Description string
	Default     string
}

type ConfigurableCheck interface {
	Check
	Options() []Option
	Configure(opts map[string]string) error
}
