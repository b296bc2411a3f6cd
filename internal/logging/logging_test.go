package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNew_DefaultAndInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("default level must be info")
	}

	if _, err := New("loud", &buf); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestNewRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)

	t.Run("debug disabled returns base", func(t *testing.T) {
		base := http.DefaultTransport
		if rt := NewRoundTripper(base, zap.NewNop(), "test"); rt != base {
			t.Errorf("expected the base transport, got %T", rt)
		}
	})

	t.Run("debug enabled logs request and response", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		client := &http.Client{Transport: NewRoundTripper(nil, zap.New(core), "fetcher")}

		resp, err := client.Get(srv.URL + "/tile")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		_ = resp.Body.Close()

		entries := logs.All()
		if len(entries) != 2 {
			t.Fatalf("expected 2 log entries, got %d", len(entries))
		}
		if entries[0].Message != "request" || entries[1].Message != "response" {
			t.Errorf("unexpected messages: %q, %q", entries[0].Message, entries[1].Message)
		}
		if got := entries[1].ContextMap()["status"]; got != int64(http.StatusTeapot) {
			t.Errorf("status = %v, want %d", got, http.StatusTeapot)
		}
	})
}
