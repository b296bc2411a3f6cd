package engine

import (
	"fmt"

	"go.uber.org/zap"

	"eliwatch/internal/config"
	"eliwatch/internal/source"
)

// discoverSources loads the sources tree and applies the input filters.
// Loading is all-or-nothing: one unreadable file fails the run.
func (e *Engine) discoverSources(cfg *config.Config, log *zap.Logger) ([]*source.Source, error) {
	e.progress(cfg, "Loading sources...")
	all, err := source.Load(cfg.Input.SourcesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources from %s: %w", cfg.Input.SourcesDir, err)
	}

	srcs := FilterSources(all, cfg)
	log.Debug("sources loaded", zap.Int("total", len(all)), zap.Int("selected", len(srcs)))
	e.progress(cfg, "Found %d sources.", len(srcs))
	return srcs, nil
}
