package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"eliwatch/internal/fsutil"
	"eliwatch/internal/report"
)

// RenderFunc turns the final report into the bytes of one artifact.
type RenderFunc func(r *report.Report) ([]byte, error)

// FileSink writes one artifact rendered from the final report. The file is
// replaced atomically on Close; nothing is written when no report arrived.
type FileSink struct {
	path   string
	render RenderFunc
	mu     sync.Mutex
	report *report.Report
}

func NewFileSink(path string, render RenderFunc) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path required")
	}
	if render == nil {
		return nil, fmt.Errorf("render function required for %s", path)
	}
	return &FileSink{path: filepath.Clean(path), render: render}, nil
}

// NewSnapshotSink writes the JSON snapshot.
func NewSnapshotSink(path string) (*FileSink, error) {
	return NewFileSink(path, report.Marshal)
}

// NewBrokenSink writes the broken-since database derived from the report.
func NewBrokenSink(path string) (*FileSink, error) {
	return NewFileSink(path, func(r *report.Report) ([]byte, error) {
		return report.FromReport(r).Marshal()
	})
}

// NewHTMLSink writes the rendered HTML page. Entries link to registryURL + path.
func NewHTMLSink(path, registryURL string) (*FileSink, error) {
	if registryURL == "" {
		registryURL = DefaultRegistryURL
	}
	return NewFileSink(path, func(r *report.Report) ([]byte, error) {
		return RenderHTMLWithRegistry(r, registryURL)
	})
}

// NewMarkdownSink writes the Markdown run summary.
func NewMarkdownSink(path string) (*FileSink, error) {
	return NewFileSink(path, RenderMarkdown)
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := v.(*report.Report); ok {
		s.report = r
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report == nil {
		return nil
	}
	data, err := s.render(s.report)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", s.path, err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
