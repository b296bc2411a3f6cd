package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"eliwatch/internal/checks"
)

// StatusCounts tallies outcomes per status.
type StatusCounts struct {
	Good    int
	Warning int
	Error   int
}

func (c *StatusCounts) add(s checks.Status) {
	switch s {
	case checks.StatusGood:
		c.Good++
	case checks.StatusWarning:
		c.Warning++
	case checks.StatusError:
		c.Error++
	}
}

func (c StatusCounts) Total() int { return c.Good + c.Warning + c.Error }

// RegionStats summarizes one region.
type RegionStats struct {
	Region  string
	Sources int
	Imagery StatusCounts
	Broken  []string
}

// ReasonCount is a normalized failure reason and how many outcomes share it.
type ReasonCount struct {
	Reason string
	Count  int
}

// Summary holds the aggregate numbers printed on the console and the HTML page.
type Summary struct {
	Sources  int
	PerCheck map[string]StatusCounts
	Regions  []RegionStats
}

// Summarize computes per-check and per-region counts.
func Summarize(r *Report) Summary {
	s := Summary{PerCheck: make(map[string]StatusCounts)}
	if r == nil {
		return s
	}
	regions := make(map[string]*RegionStats)
	for _, sr := range r.Sources {
		s.Sources++
		for id, o := range sr.Checks {
			c := s.PerCheck[id]
			c.add(o.Status)
			s.PerCheck[id] = c
		}

		region := sr.Region()
		rs, ok := regions[region]
		if !ok {
			rs = &RegionStats{Region: region}
			regions[region] = rs
		}
		rs.Sources++
		rs.Imagery.add(sr.Outcome(checks.IDImagery).Status)
		if sr.ImageryBroken() {
			rs.Broken = append(rs.Broken, sr.ID)
		}
	}
	for _, rs := range regions {
		sort.Strings(rs.Broken)
		s.Regions = append(s.Regions, *rs)
	}
	sort.Slice(s.Regions, func(i, j int) bool {
		return compareFold(s.Regions[i].Region, s.Regions[j].Region) < 0
	})
	return s
}

// TopFailureReasons groups error messages of a check by normalized reason.
func TopFailureReasons(r *Report, checkID string, n int) []ReasonCount {
	if r == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, sr := range r.Sources {
		o, ok := sr.Checks[checkID]
		if !ok || o.Status != checks.StatusError || len(o.Messages) == 0 {
			continue
		}
		counts[NormalizeReason(o.Messages[0])]++
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, c := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

var (
	urlPattern  = regexp.MustCompile(`https?://\S+`)
	zoomPattern = regexp.MustCompile(`\(Tested: [^)]*\)`)
)

// NormalizeReason collapses whitespace and strips URLs and tested zoom lists so
// that failures of different sources group together.
func NormalizeReason(msg string) string {
	s := urlPattern.ReplaceAllString(msg, "<url>")
	s = zoomPattern.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

// FormatList renders "n sources (a, b, +k more)".
func FormatList(ids []string, max int) string {
	if len(ids) == 0 {
		return ""
	}
	if len(ids) <= max {
		return fmt.Sprintf("%d sources (%s)", len(ids), strings.Join(ids, ", "))
	}
	return fmt.Sprintf("%d sources (%s, +%d more)", len(ids), strings.Join(ids[:max], ", "), len(ids)-max)
}
