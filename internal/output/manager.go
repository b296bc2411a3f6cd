package output

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eliwatch/internal/logging"
)

// Sink is a destination for audit output. Sinks receive checks.Result and
// Event values while the run streams, and a single *report.Report once all
// sources have been checked. Artifacts are written on Close.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans values out to every registered sink.
type Manager struct {
	sinks []Sink
	log   *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	return &Manager{log: logging.OrNop(log)}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Len returns the number of registered sinks.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			m.log.Warn("sink write failed", zap.String("sink", fmt.Sprintf("%T", s)), zap.Error(err))
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes every sink, even when earlier ones fail.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			m.log.Error("sink close failed", zap.String("sink", fmt.Sprintf("%T", s)), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
