package output

import "eliwatch/internal/checks"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - source.started
// - check.result
// - source.finished
// - run.finished
//
// JSON mode remains an aggregate of checks.Result values.
type Event struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	*checks.Result
	Sources  int    `json:"sources,omitempty"`
	Checks   int    `json:"checks,omitempty"`
	Worst    string `json:"worst_status,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

const (
	EventRunStarted     = "run.started"
	EventSourceStarted  = "source.started"
	EventCheckResult    = "check.result"
	EventSourceFinished = "source.finished"
	EventRunFinished    = "run.finished"
)

func eventFromResult(r checks.Result) Event {
	return Event{Type: EventCheckResult, Source: r.Source, Result: &r}
}
