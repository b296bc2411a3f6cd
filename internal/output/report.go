package output

import (
	"fmt"
	"sort"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

// RenderMarkdown builds the run summary used as a CI job summary.
func RenderMarkdown(r *report.Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report is nil")
	}
	sum := report.Summarize(r)

	var b strings.Builder
	b.WriteString("# Imagery Source Audit\n\n")
	b.WriteString(fmt.Sprintf("Checked %d sources", sum.Sources))
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf(" (run `%s`)", r.RunID))
	}
	b.WriteString(".\n\n")

	// --- Per-check counts ---
	b.WriteString("| Check | Good | Warning | Error |\n")
	b.WriteString("| --- | ---: | ---: | ---: |\n")
	for _, id := range checks.RequiredIDs {
		c := sum.PerCheck[id]
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", id, c.Good, c.Warning, c.Error))
	}
	b.WriteString("\n")

	// --- Delta ---
	b.WriteString("## Changes since the previous run\n\n")
	switch d := r.Delta; {
	case d == nil || d.FirstRun:
		b.WriteString("- First run, no previous snapshot.\n\n")
	case d.Empty():
		b.WriteString("- None\n\n")
	default:
		writeList := func(label string, ids []string) {
			if len(ids) > 0 {
				b.WriteString(fmt.Sprintf("- **%s**: %s\n", label, report.FormatList(ids, 10)))
			}
		}
		writeList("Newly broken", d.NewlyBroken)
		writeList("Recovered", d.Recovered)
		writeList("Added", d.Added)
		writeList("Removed", d.Removed)
		b.WriteString("\n")
	}

	// --- Failure reasons ---
	b.WriteString("## Top imagery failures\n\n")
	reasons := report.TopFailureReasons(r, checks.IDImagery, 10)
	if len(reasons) == 0 {
		b.WriteString("- None\n\n")
	} else {
		b.WriteString("| Sources | Reason |\n")
		b.WriteString("| ---: | --- |\n")
		for _, rc := range reasons {
			b.WriteString(fmt.Sprintf("| %d | %s |\n", rc.Count, escapeCell(rc.Reason)))
		}
		b.WriteString("\n")
	}

	// --- Broken by region ---
	b.WriteString("## Broken imagery by region\n\n")
	found := false
	for _, rs := range sum.Regions {
		if len(rs.Broken) == 0 {
			continue
		}
		found = true
		b.WriteString(fmt.Sprintf("- **%s**: %s\n", rs.Region, report.FormatList(rs.Broken, 5)))
	}
	if !found {
		b.WriteString("- None\n")
	}
	b.WriteString("\n")

	// --- Long broken ---
	var long []report.SourceResult
	for _, sr := range r.Sources {
		if sr.BrokenSince != "" {
			long = append(long, sr)
		}
	}
	if len(long) > 0 {
		sort.SliceStable(long, func(i, j int) bool {
			if long[i].BrokenSince != long[j].BrokenSince {
				return long[i].BrokenSince < long[j].BrokenSince
			}
			return long[i].ID < long[j].ID
		})
		b.WriteString("## Broken since\n\n")
		b.WriteString("| Source | Since | Path |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, sr := range long {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(sr.Name), sr.BrokenSince, sr.Path))
		}
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
