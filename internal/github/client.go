package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"eliwatch/internal/logging"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	log     *zap.Logger
	baseURL string
}

type Option func(*options)

// WithLogger logs every API request at debug level (through the shared
// logging round tripper) so structured output on stdout stays clean.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = raw
	}
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := logging.NewRoundTripper(http.DefaultTransport, o.log, "github")
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	// Always provide an http.Client so request logging works even without a token.
	tc := &http.Client{Transport: transport}

	client := github.NewClient(tc)
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github client: invalid base URL %q: %w", o.baseURL, err)
		}
		client.BaseURL = u
		client.UploadURL = u
	}

	return &Client{
		Client: client,
		HTTP:   tc,
	}, nil
}
