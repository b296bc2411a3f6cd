package fields

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"sync"
	"testing"
	"time"

	"eliwatch/internal/fetcher"
)

// fakeProber answers fetches from a handler and records requested URLs.
type fakeProber struct {
	mu      sync.Mutex
	calls   []string
	handler func(rawURL string) (*fetcher.Response, error)
}

func (f *fakeProber) Fetch(_ context.Context, rawURL string) (*fetcher.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()
	return f.handler(rawURL)
}

func respond(code int, body []byte) func(string) (*fetcher.Response, error) {
	return func(rawURL string) (*fetcher.Response, error) {
		return &fetcher.Response{URL: rawURL, FinalURL: rawURL, StatusCode: code, Body: body}, nil
	}
}

func pngTile(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func intPtr(v int) *int { return &v }

func newTestImageryCheck(t *testing.T, opts map[string]string) *ImageryCheck {
	t.Helper()
	c := NewImageryCheck()
	c.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }
	if opts == nil {
		opts = map[string]string{}
	}
	if _, ok := opts["tile_delay"]; !ok {
		opts["tile_delay"] = "0s"
	}
	if err := c.Configure(opts); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return c
}
