// Package fields holds the fixed set of checks run against every source:
// imagery, license_url, privacy_policy_url and category.
package fields

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eliwatch/internal/checks"
	"eliwatch/internal/fetcher"
)

// abortError returns the error that ends a check instead of becoming a
// failure message: a canceled run or an exhausted request budget.
func abortError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if fetcher.IsKind(err, fetcher.KindBudget) {
		return err
	}
	return nil
}

// fetchDocument fetches a capabilities document with the larger document cap.
func fetchDocument(ctx context.Context, p checks.Prober, rawURL string) (*fetcher.Response, error) {
	return p.Fetch(fetcher.WithBodyLimit(ctx, fetcher.MaxDocumentSize), rawURL)
}

func truncatedMessage(rawURL string) string {
	return fmt.Sprintf("Warning: capabilities document exceeds %d MiB, not parsed: %s", fetcher.MaxDocumentSize>>20, rawURL)
}

func statusMessage(rawURL string, code int) string {
	return fmt.Sprintf("HTTP Code %d for %s", code, rawURL)
}

// failureMessage renders a transport failure the way it is shown in reports.
func failureMessage(rawURL string, err error) string {
	var fe *fetcher.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetcher.KindTimeout:
			return fmt.Sprintf("Timeout for: %s", rawURL)
		case fetcher.KindInvalidURL:
			return fmt.Sprintf("Could not parse URL: %s", rawURL)
		}
		return fmt.Sprintf("Exception %s for: %s", fe.Error(), rawURL)
	}
	return fmt.Sprintf("Exception %v for: %s", err, rawURL)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 400
}

func optionValue(opts map[string]string, key string) (string, bool) {
	v, ok := opts[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func intOption(opts map[string]string, key string, dst *int, min int) error {
	v, ok := optionValue(opts, key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %s", key, v)
	}
	if n < min {
		return fmt.Errorf("%s must be >= %d", key, min)
	}
	*dst = n
	return nil
}

func boolOption(opts map[string]string, key string, dst *bool) error {
	v, ok := optionValue(opts, key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %s", key, v)
	}
	*dst = b
	return nil
}

func durationOption(opts map[string]string, key string, dst *time.Duration) error {
	v, ok := optionValue(opts, key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %s", key, v)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", key)
	}
	*dst = d
	return nil
}
