package checks

import (
	"context"

	"eliwatch/internal/source"
)

// AllowListWrapper wraps a Check to provide automatic allowlist functionality.
type AllowListWrapper struct {
	Check
	allowList AllowList
}

// Unwrap returns the wrapped check.
func (w *AllowListWrapper) Unwrap() Check {
	return w.Check
}

// Evaluate calls the inner check's Evaluate and then applies the allowlist logic.
func (w *AllowListWrapper) Evaluate(ctx context.Context, src *source.Source, p Prober) (Result, error) {
	result, err := w.Check.Evaluate(ctx, src, p)
	if err != nil {
		return result, err
	}
	return w.allowList.CheckResult(src, result), nil
}

// Options returns the combined options of the allowlist and the inner check (if configurable).
func (w *AllowListWrapper) Options() []Option {
	opts := w.allowList.Options()
	if cc, ok := w.Check.(ConfigurableCheck); ok {
		opts = append(opts, cc.Options()...)
	}
	return opts
}

// Configure configures the allowlist and the inner check (if configurable).
func (w *AllowListWrapper) Configure(opts map[string]string) error {
	w.allowList.Configure(opts)
	if cc, ok := w.Check.(ConfigurableCheck); ok {
		return cc.Configure(opts)
	}
	return nil
}
