package engine

import "eliwatch/internal/checks"

// SourceExecutionResult holds the outcome of running all planned checks
// against one source. It is emitted by the scheduler and consumed by the
// engine while the audit streams.
type SourceExecutionResult struct {
	Plan    *SourcePlan
	Results []checks.Result
}

// Worst returns the most severe status among the results.
func (r SourceExecutionResult) Worst() checks.Status {
	worst := checks.StatusGood
	for _, res := range r.Results {
		worst = checks.Worst(worst, res.Status)
	}
	return worst
}
