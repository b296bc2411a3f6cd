package engine

import (
	"fmt"
	"io"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

type AuditPlan struct {
	SourcePlans []*SourcePlan
	Checks      []checks.Check
	seen        map[string]bool
}

type SourcePlan struct {
	Source *source.Source
	Checks []checks.Check
}

func NewAuditPlan(selected []checks.Check) *AuditPlan {
	return &AuditPlan{
		Checks: selected,
		seen:   make(map[string]bool),
	}
}

// AddSource schedules every selected check for src. Sources are keyed by path;
// adding the same file twice is an error.
func (p *AuditPlan) AddSource(src *source.Source) error {
	if p == nil {
		return fmt.Errorf("audit plan is nil")
	}
	if p.seen == nil {
		return fmt.Errorf("audit plan is not initialized; use NewAuditPlan")
	}
	if src == nil {
		return fmt.Errorf("source is nil")
	}
	if p.seen[src.Path] {
		return fmt.Errorf("source %s added twice", src.Path)
	}
	p.seen[src.Path] = true
	p.SourcePlans = append(p.SourcePlans, &SourcePlan{Source: src, Checks: p.Checks})
	return nil
}

// CheckIDs returns the IDs of the selected checks in plan order.
func (p *AuditPlan) CheckIDs() []string {
	ids := make([]string, 0, len(p.Checks))
	for _, c := range p.Checks {
		ids = append(ids, c.ID())
	}
	return ids
}

// Describe writes the dry-run listing: selected checks, then one line per source.
func (p *AuditPlan) Describe(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Checks: %s\n", strings.Join(p.CheckIDs(), ", ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sources (%d):\n", len(p.SourcePlans)); err != nil {
		return err
	}
	for _, sp := range p.SourcePlans {
		s := sp.Source
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", s.Path, s.Key(), s.Type); err != nil {
			return err
		}
	}
	return nil
}
