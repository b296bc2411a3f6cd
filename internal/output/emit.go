package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

// EmitSink writes additional structured outputs.
//
// Formats:
//   - json: writes the final snapshot on Close
//   - ndjson: streams Event values (one JSON object per line)
type EmitSink struct {
	writer io.Writer
	format string // "json" | "ndjson"
	mu     sync.Mutex
	report *report.Report
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if r, ok := v.(*report.Report); ok {
			s.report = r
		}
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case checks.Result:
			if err := encoder.Encode(eventFromResult(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	default:
		return fmt.Errorf("unsupported emit format: %s", s.format)
	}
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format != "json" || s.report == nil {
		return nil
	}
	data, err := report.Marshal(s.report)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}
