// Package preview serves the rendered output directory over HTTP for local
// inspection before publishing.
package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"eliwatch/internal/logging"
)

const (
	DefaultAddr     = "127.0.0.1:8000"
	shutdownTimeout = 5 * time.Second
)

// NewHandler returns a router serving dir. The snapshot and broken database
// are served with no-cache headers so reloads pick up a fresh run.
func NewHandler(dir string, log *zap.Logger) http.Handler {
	log = logging.OrNop(log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, accessLog(log))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	files := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, req)
	})
	return r
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Serve listens on addr and serves dir until ctx is canceled. ready, when
// non-nil, receives the bound address once the listener is open.
func Serve(ctx context.Context, addr, dir string, log *zap.Logger, ready func(net.Addr)) error {
	log = logging.OrNop(log)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("preview: %s is not a directory", dir)
	}
	if addr == "" {
		addr = DefaultAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("preview: failed to listen on %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           NewHandler(dir, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}
	log.Info("serving rendered output", zap.String("addr", ln.Addr().String()), zap.String("dir", dir))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("preview: shutdown: %w", err)
	}
	return nil
}
