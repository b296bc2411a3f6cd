package output

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

// DefaultRegistryURL is prefixed to a source path to link an entry to its file.
const DefaultRegistryURL = "https://github.com/osmlab/editor-layer-index/tree/gh-pages/sources/"

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

var statusClass = map[checks.Status]string{
	checks.StatusGood:    "table-success",
	checks.StatusWarning: "table-warning",
	checks.StatusError:   "table-danger",
}

// columns are the checks rendered as table cells, in order.
var columns = []struct {
	ID    string
	Title string
}{
	{checks.IDImagery, "Imagery"},
	{checks.IDLicenseURL, "License"},
	{checks.IDPrivacyPolicyURL, "Privacy policy"},
	{checks.IDCategory, "Category"},
}

type htmlCell struct {
	Class string
	Lines []string
}

type htmlRow struct {
	Name        string
	Link        string
	BrokenSince string
	Cells       []htmlCell
}

type htmlGroup struct {
	Region  string
	Country string
	Anchor  string
	Rows    []htmlRow
}

type htmlCount struct {
	Title string
	report.StatusCounts
}

type htmlPage struct {
	GeneratedAt string
	RunID       string
	Sources     int
	Columns     []string
	Counts      []htmlCount
	Delta       *report.Delta
	Menu        []report.RegionMenu
	Groups      []htmlGroup
}

// RenderHTML renders the report page. The output depends only on the report,
// so rendering the same report twice yields identical bytes.
func RenderHTML(r *report.Report) ([]byte, error) {
	return RenderHTMLWithRegistry(r, DefaultRegistryURL)
}

func RenderHTMLWithRegistry(r *report.Report, registryURL string) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report is nil")
	}
	page := buildPage(r, registryURL)
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPage(r *report.Report, registryURL string) htmlPage {
	groups := report.GroupByCountry(r.Sources)
	sum := report.Summarize(r)

	page := htmlPage{
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:       r.RunID,
		Sources:     sum.Sources,
		Menu:        report.Menu(groups),
	}
	if r.Delta != nil && !r.Delta.FirstRun && !r.Delta.Empty() {
		page.Delta = r.Delta
	}
	for _, c := range columns {
		page.Columns = append(page.Columns, c.Title)
		page.Counts = append(page.Counts, htmlCount{Title: c.Title, StatusCounts: sum.PerCheck[c.ID]})
	}

	registryURL = strings.TrimSuffix(registryURL, "/") + "/"
	for _, g := range groups {
		hg := htmlGroup{Region: g.Region, Country: g.Country, Anchor: g.Anchor}
		for _, sr := range g.Sources {
			row := htmlRow{
				Name:        sr.Name,
				Link:        registryURL + sr.Path,
				BrokenSince: sr.BrokenSince,
			}
			for _, c := range columns {
				o := sr.Outcome(c.ID)
				row.Cells = append(row.Cells, htmlCell{Class: statusClass[o.Status], Lines: o.Messages})
			}
			hg.Rows = append(hg.Rows, row)
		}
		page.Groups = append(page.Groups, hg)
	}
	return page
}
