package output

import (
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

func outcome(status checks.Status, msgs ...string) report.Outcome {
	return report.Outcome{Status: status, Messages: msgs}
}

func sampleReport() *report.Report {
	r := report.New("run-1", time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC), "sources", checks.RequiredIDs)
	r.Add(report.SourceResult{
		ID:        "acme",
		Name:      "Acme Aerial",
		Type:      "tms",
		Category:  "photo",
		Path:      "europe/ch/acme.geojson",
		Directory: []string{"europe", "ch"},
		Filename:  "acme.geojson",
		Checks: map[string]report.Outcome{
			checks.IDImagery:          outcome(checks.StatusError, "No zoom level reachable. (Tested: 0, 22)", "Zoom 0: Exception connection refused for: http://dead.example/tile"),
			checks.IDLicenseURL:       outcome(checks.StatusError, "Missing license_url"),
			checks.IDPrivacyPolicyURL: outcome(checks.StatusGood, "HTTP Code 200 for http://ok.example/privacy"),
			checks.IDCategory:         outcome(checks.StatusGood, "photo"),
		},
		BrokenSince: "2026-10-10",
	})
	r.Add(report.SourceResult{
		ID:        "basemap",
		Name:      "basemap <CH>",
		Type:      "wms",
		Path:      "europe/ch/basemap.geojson",
		Directory: []string{"europe", "ch"},
		Filename:  "basemap.geojson",
		Checks: map[string]report.Outcome{
			checks.IDImagery:          outcome(checks.StatusWarning, "Warning: Query requests WMS version '1.1.1', server supports '1.3.0'"),
			checks.IDLicenseURL:       outcome(checks.StatusGood, "HTTP Code 200 for https://b.example/license"),
			checks.IDPrivacyPolicyURL: outcome(checks.StatusGood, "HTTP Code 200 for https://b.example/privacy"),
			checks.IDCategory:         outcome(checks.StatusError, "Missing category"),
		},
	})
	r.Delta = &report.Delta{
		NewlyBroken: []string{"acme"},
		Recovered:   []string{},
		Added:       []string{"basemap"},
		Removed:     []string{},
	}
	return r
}
