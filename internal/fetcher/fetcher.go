// Package fetcher performs the HTTP probes behind every network check.
//
// A Fetcher fetches each URL at most once per run. Failures are cached the
// same way as successes, concurrent identical requests are collapsed and only
// one request per host is in flight at any time.
package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"eliwatch/internal/logging"

	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; eliwatch; +https://github.com/osmlab/editor-layer-index)"
	MaxBodySize      = 4 << 20
	MaxDocumentSize  = 64 << 20
	MaxRedirects     = 10
)

// Response is the cached outcome of a successful round trip. A non-2xx status
// is still a Response; only transport failures are errors.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Truncated   bool

	// TLSIssue holds the certificate verification failure of the final host,
	// or nil when the chain verified (or the final URL was plain HTTP).
	TLSIssue error
}

type bodyLimitKey struct{}

// WithBodyLimit returns a context whose fetches keep up to n body bytes
// instead of MaxBodySize. Capabilities documents and the broken DB use
// MaxDocumentSize.
func WithBodyLimit(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, bodyLimitKey{}, n)
}

func bodyLimit(ctx context.Context) int {
	if n, ok := ctx.Value(bodyLimitKey{}).(int); ok && n > 0 {
		return n
	}
	return MaxBodySize
}

type cacheEntry struct {
	resp *Response
	err  error
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	roots     *x509.CertPool
	budget    *RequestBudget
	group     Group
	cache     *Cache
	hosts     sync.Map
	log       *zap.Logger
}

type options struct {
	timeout   time.Duration
	userAgent string
	roots     *x509.CertPool
	budget    *RequestBudget
	log       *zap.Logger
	transport http.RoundTripper
}

type Option func(*options)

// WithTimeout bounds every single request, redirects included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithRootCAs replaces the system roots used to verify server certificates.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(o *options) { o.roots = pool }
}

func WithBudget(b *RequestBudget) Option {
	return func(o *options) { o.budget = b }
}

// WithLogger enables per-request debug logging when the logger is at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTransport overrides the base transport. Certificate verification is
// always performed after the response; the transport itself must not verify.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func NewFetcher(opts ...Option) *Fetcher {
	o := options{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if strings.TrimSpace(o.userAgent) == "" {
		o.userAgent = DefaultUserAgent
	}
	log := logging.OrNop(o.log)

	base := o.transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		// Verification happens in verifyPeer so a bad certificate can be
		// reported without failing the request.
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		base = t
	}

	client := &http.Client{
		Timeout:   o.timeout,
		Transport: logging.NewRoundTripper(base, log, "fetcher"),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		userAgent: o.userAgent,
		roots:     o.roots,
		budget:    o.budget,
		cache:     NewCache(),
		log:       log,
	}
}

// Fetch GETs rawURL once per run. Repeated calls return the cached response or error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.client == nil || f.cache == nil {
		return nil, fmt.Errorf("Fetch: uninitialized Fetcher (use NewFetcher)")
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: fmt.Errorf("could not parse URL: %s", rawURL)}
	}

	if e, ok := f.cache.Get(rawURL); ok {
		f.log.Debug("cached", zap.String("url", rawURL))
		return e.resp, e.err
	}

	e, _ := f.group.Do(rawURL, func() cacheEntry {
		if e, ok := f.cache.Get(rawURL); ok {
			return e
		}

		unlock := f.lockHost(u.Host)
		defer unlock()

		resp, err := f.do(ctx, rawURL)
		e := cacheEntry{resp: resp, err: err}
		// A canceled run must not poison the cache for later callers.
		if ctx.Err() == nil {
			f.cache.Set(rawURL, e)
		}
		return e
	})
	return e.resp, e.err
}

func (f *Fetcher) lockHost(host string) func() {
	v, _ := f.hosts.LoadOrStore(strings.ToLower(host), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*Response, error) {
	if f.budget != nil {
		if err := f.budget.Acquire(ctx); err != nil {
			return nil, classify(rawURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	f.log.Debug("GET", zap.String("url", rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if f.budget != nil {
		f.budget.UpdateFromResponse(resp)
	}

	limit := bodyLimit(ctx)
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return nil, classify(rawURL, err)
	}
	truncated := len(body) > limit
	if truncated {
		body = body[:limit]
	}

	out := &Response{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
		if resp.TLS != nil {
			out.TLSIssue = verifyPeer(resp.TLS, resp.Request.URL.Hostname(), f.roots)
		}
	}
	return out, nil
}

// verifyPeer checks the presented chain against roots and host.
func verifyPeer(cs *tls.ConnectionState, host string, roots *x509.CertPool) error {
	if cs == nil || len(cs.PeerCertificates) == 0 {
		return errors.New("server presented no certificate")
	}
	opts := x509.VerifyOptions{
		DNSName:       host,
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}
