package engine

import (
	"errors"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/fetcher"
)

// presentCheckError turns an error returned by a check into a result status
// and message. An exhausted request budget means the check did not run.
func presentCheckError(err error, verbose bool) (checks.Status, string) {
	if err == nil {
		return checks.StatusError, "Check failed: unknown error"
	}
	if fetcher.IsKind(err, fetcher.KindBudget) || errors.Is(err, fetcher.ErrBudgetExhausted) {
		return checks.StatusWarning, checks.NotChecked + ": request budget exhausted"
	}

	full := strings.TrimSpace(err.Error())
	if verbose {
		return checks.StatusError, "Check failed: " + full
	}

	var fe *fetcher.Error
	if errors.As(err, &fe) {
		return checks.StatusError, "Check failed: " + fe.Error()
	}
	if scrubbed := scrubRequestFromErrorString(full); scrubbed != "" {
		return checks.StatusError, "Check failed: " + scrubbed
	}
	return checks.StatusError, "Check failed: " + full
}

func scrubRequestFromErrorString(s string) string {
	// Typical net/http error format:
	//   Get "https://example.com/x?key=...": dial tcp: ...
	// We want to drop the leading `Get "https://...": ` part.
	methods := []string{"Get ", "Head ", "Post "}
	for _, m := range methods {
		if !strings.HasPrefix(s, m) {
			continue
		}
		if i := strings.Index(s, `": `); i >= 0 {
			return strings.TrimSpace(s[i+3:])
		}
		break
	}
	return ""
}
