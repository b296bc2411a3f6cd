package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	results         []checks.Result // For JSON array output
	report          *report.Report
	allowedStatuses map[checks.Status]bool
}

var statusColors = map[checks.Status]*color.Color{
	checks.StatusGood:    color.New(color.FgGreen),
	checks.StatusWarning: color.New(color.FgYellow),
	checks.StatusError:   color.New(color.FgRed, color.Bold),
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[checks.Status]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[checks.Status(strings.ToLower(strings.TrimSpace(st)))] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if r, ok := v.(*report.Report); ok {
		s.report = r
		return nil
	}

	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(checks.Result); ok && !s.allowedStatuses[r.Status] {
			return nil
		}
	}

	switch s.format {
	case "json":
		if r, ok := v.(checks.Result); ok {
			s.results = append(s.results, r)
		}
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case checks.Result:
			if err := encoder.Encode(eventFromResult(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		r, ok := v.(checks.Result)
		if !ok {
			return nil
		}
		label := fmt.Sprintf("[%s]", r.Status)
		if c, ok := statusColors[r.Status]; ok {
			label = c.Sprint(label)
		}
		line := fmt.Sprintf("%s %s: %s", label, r.Source, r.CheckID)
		if msg := r.Message(); msg != "" {
			line += " - " + msg
		}
		if _, err := fmt.Fprintln(s.writer, line); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if s.results == nil {
			s.results = []checks.Result{}
		}
		if err := encoder.Encode(s.results); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		if s.report == nil {
			return nil
		}
		if err := writeTextSummary(s.writer, s.report); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// writeTextSummary prints the per-region imagery table and the run delta.
func writeTextSummary(w io.Writer, r *report.Report) error {
	sum := report.Summarize(r)
	bold := color.New(color.Bold)

	if _, err := fmt.Fprintf(w, "\n%s\n", bold.Sprintf("Imagery status of %d sources", sum.Sources)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Region", "Sources", "Good", "Warning", "Error")
	var total report.StatusCounts
	for _, rs := range sum.Regions {
		total.Good += rs.Imagery.Good
		total.Warning += rs.Imagery.Warning
		total.Error += rs.Imagery.Error
		if err := table.Append([]string{
			rs.Region,
			strconv.Itoa(rs.Sources),
			strconv.Itoa(rs.Imagery.Good),
			strconv.Itoa(rs.Imagery.Warning),
			strconv.Itoa(rs.Imagery.Error),
		}); err != nil {
			return err
		}
	}
	if err := table.Append([]string{
		"total",
		strconv.Itoa(sum.Sources),
		strconv.Itoa(total.Good),
		strconv.Itoa(total.Warning),
		strconv.Itoa(total.Error),
	}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, rc := range report.TopFailureReasons(r, checks.IDImagery, 5) {
		if _, err := fmt.Fprintf(w, "  %4d  %s\n", rc.Count, rc.Reason); err != nil {
			return err
		}
	}

	d := r.Delta
	if d == nil || d.FirstRun {
		return nil
	}
	lines := []struct {
		label string
		ids   []string
	}{
		{"Newly broken", d.NewlyBroken},
		{"Recovered", d.Recovered},
		{"Added", d.Added},
		{"Removed", d.Removed},
	}
	for _, l := range lines {
		if len(l.ids) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", l.label, report.FormatList(l.ids, 10)); err != nil {
			return err
		}
	}
	return nil
}
