package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindDNS        Kind = "dns"
	KindRefused    Kind = "refused"
	KindTLS        Kind = "tls"
	KindInvalidURL Kind = "invalid_url"
	KindBudget     Kind = "budget"
	KindCanceled   Kind = "canceled"
	KindOther      Kind = "other"
)

// Error is a transport level failure. Err is the underlying cause without
// the "Get <url>:" prefix added by net/http.
type Error struct {
	URL  string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

func classify(rawURL string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	inner := err
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		inner = ue.Err
	}

	var (
		dnsErr  *net.DNSError
		netErr  net.Error
		certErr *tls.CertificateVerificationError
		recErr  tls.RecordHeaderError
	)
	kind := KindOther
	switch {
	case errors.Is(err, ErrBudgetExhausted):
		kind = KindBudget
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		kind = KindDNS
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = KindRefused
	case errors.As(err, &certErr), errors.As(err, &recErr), strings.Contains(inner.Error(), "tls:"):
		kind = KindTLS
	}

	return &Error{URL: rawURL, Kind: kind, Err: inner}
}
