// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when neither --verbose nor ELIWATCH_LOG_LEVEL is set.
const DefaultLevel = "info"

// New returns a console logger writing to w at the given level.
// An empty level means DefaultLevel.
func New(level string, w io.Writer) (*zap.Logger, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

type roundTripper struct {
	base      http.RoundTripper
	log       *zap.Logger
	component string
}

// NewRoundTripper wraps base so every request and response is logged at debug level.
// When debug logging is disabled the base transport is returned unchanged.
func NewRoundTripper(base http.RoundTripper, log *zap.Logger, component string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil || !log.Core().Enabled(zapcore.DebugLevel) {
		return base
	}
	return &roundTripper{base: base, log: log, component: component}
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	rt.log.Debug("request",
		zap.String("component", rt.component),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := rt.base.RoundTrip(req)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		rt.log.Debug("request failed",
			zap.String("component", rt.component),
			zap.String("url", req.URL.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	rt.log.Debug("response",
		zap.String("component", rt.component),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}
