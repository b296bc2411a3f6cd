package checks

import "strings"

type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// NotChecked is the message of a check that was deselected or skipped.
const NotChecked = "Not checked"

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusGood, StatusWarning, StatusError:
		return true
	}
	return false
}

// Rank orders statuses by severity: good < warning < error.
func (s Status) Rank() int {
	switch s {
	case StatusGood:
		return 0
	case StatusWarning:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type Result struct {
	CheckID  string   `json:"check"`
	Source   string   `json:"source"`
	Status   Status   `json:"status"`
	Messages []string `json:"messages,omitempty"`

	// Missing marks an error caused by an absent required property.
	// The allow list never downgrades it.
	Missing bool `json:"-"`
}

// Message joins the messages of the result with "; ".
func (r Result) Message() string {
	return strings.Join(r.Messages, "; ")
}
