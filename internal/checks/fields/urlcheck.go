package fields

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"eliwatch/internal/checks"
	"eliwatch/internal/source"
)

// DefaultSoftKeywords mark parked or expired pages that still answer 200.
var DefaultSoftKeywords = []string{
	"domain is for sale",
	"this domain may be for sale",
	"buy this domain",
	"domain has expired",
	"this domain name has expired",
	"account suspended",
	"parked free",
}

// URLFieldCheck probes a URL-valued property of a source.
type URLFieldCheck struct {
	id          string
	title       string
	description string
	value       func(*source.Source) string

	softKeywords   []string
	warnHostChange bool
	insecureTLS    bool
}

func NewLicenseURLCheck() *URLFieldCheck {
	c := &URLFieldCheck{
		id:          checks.IDLicenseURL,
		title:       "License URL Reachable",
		description: "Verifies that license_url is set and reachable.",
		value:       func(s *source.Source) string { return s.LicenseURL },
	}
	c.setDefaults()
	return c
}

func NewPrivacyPolicyURLCheck() *URLFieldCheck {
	c := &URLFieldCheck{
		id:          checks.IDPrivacyPolicyURL,
		title:       "Privacy Policy URL Reachable",
		description: "Verifies that privacy_policy_url is set and reachable.",
		value:       func(s *source.Source) string { return s.PrivacyPolicyURL },
	}
	c.setDefaults()
	return c
}

func (c *URLFieldCheck) setDefaults() {
	c.softKeywords = append([]string(nil), DefaultSoftKeywords...)
	c.warnHostChange = true
	c.insecureTLS = false
}

func (c *URLFieldCheck) ID() string {
	return c.id
}

func (c *URLFieldCheck) Title() string {
	return c.title
}

func (c *URLFieldCheck) Description() string {
	return c.description + "\n\n" +
		"Result classification:\n" +
		"- missing value: error \"Missing " + c.id + "\"\n" +
		"- timeout, DNS, refused, certificate failure or a 4xx/5xx status: error\n" +
		"- page text matching a soft keyword, a redirect to another host or a certificate issued for another host: warning\n" +
		"- otherwise: good"
}

func (c *URLFieldCheck) Options() []checks.Option {
	return []checks.Option{
		{
			Name:        "soft_keywords",
			Description: "Comma-separated phrases that mark a parked or placeholder page (case-insensitive). Empty disables the heuristic.",
			Default:     strings.Join(DefaultSoftKeywords, ","),
		},
		{
			Name:        "warn_host_change",
			Description: "If true, warn when redirects end on a different host than requested.",
			Default:     "true",
		},
		{
			Name:        "insecure_tls",
			Description: "If true, report certificate failures other than a host mismatch as warnings instead of errors.",
			Default:     "false",
		},
	}
}

func (c *URLFieldCheck) Configure(opts map[string]string) error {
	c.setDefaults()

	if v, ok := opts["soft_keywords"]; ok {
		c.softKeywords = nil
		for _, kw := range checks.SplitOption(v) {
			c.softKeywords = append(c.softKeywords, strings.ToLower(kw))
		}
	}
	if err := boolOption(opts, "warn_host_change", &c.warnHostChange); err != nil {
		return err
	}
	return boolOption(opts, "insecure_tls", &c.insecureTLS)
}

func (c *URLFieldCheck) Evaluate(ctx context.Context, src *source.Source, p checks.Prober) (checks.Result, error) {
	raw := strings.TrimSpace(c.value(src))
	if raw == "" {
		return checks.MissingResult(src, c.id, c.id), nil
	}

	resp, err := p.Fetch(ctx, raw)
	if err != nil {
		if stop := abortError(ctx, err); stop != nil {
			return checks.Result{}, stop
		}
		return checks.ErrorResult(src, c.id, failureMessage(raw, err)), nil
	}

	if !isSuccess(resp.StatusCode) {
		return checks.ErrorResult(src, c.id, statusMessage(raw, resp.StatusCode)), nil
	}

	var warnings []string
	if resp.TLSIssue != nil {
		var hostErr x509.HostnameError
		switch {
		case errors.As(resp.TLSIssue, &hostErr):
			warnings = append(warnings, fmt.Sprintf("Warning: certificate does not match host (%s)", resp.TLSIssue))
		case c.insecureTLS:
			warnings = append(warnings, fmt.Sprintf("Warning: certificate problem (%s)", resp.TLSIssue))
		default:
			return checks.ErrorResult(src, c.id, failureMessage(raw, resp.TLSIssue)), nil
		}
	}

	if c.warnHostChange && hostChanged(raw, resp.FinalURL) {
		warnings = append(warnings, fmt.Sprintf("Warning: redirected to another host: %s", resp.FinalURL))
	}

	if kw := matchKeyword(resp.Body, c.softKeywords); kw != "" {
		warnings = append(warnings, fmt.Sprintf("Warning: page looks like a placeholder (%q)", kw))
	}

	msgs := append([]string{statusMessage(raw, resp.StatusCode)}, warnings...)
	if len(warnings) > 0 {
		return checks.WarningResult(src, c.id, msgs...), nil
	}
	return checks.GoodResult(src, c.id, msgs...), nil
}

func hostChanged(requested, final string) bool {
	a, errA := url.Parse(requested)
	b, errB := url.Parse(final)
	if errA != nil || errB != nil {
		return false
	}
	return normalizeHost(a.Hostname()) != normalizeHost(b.Hostname())
}

func normalizeHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}

func matchKeyword(body []byte, keywords []string) string {
	if len(body) == 0 || len(keywords) == 0 {
		return ""
	}
	lower := bytes.ToLower(body)
	for _, kw := range keywords {
		if bytes.Contains(lower, []byte(kw)) {
			return kw
		}
	}
	return ""
}

func init() {
	checks.Register(NewLicenseURLCheck())
	checks.Register(NewPrivacyPolicyURLCheck())
}
