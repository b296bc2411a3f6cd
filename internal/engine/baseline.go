package engine

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"eliwatch/internal/checks"
	"eliwatch/internal/config"
	"eliwatch/internal/fetcher"
	"eliwatch/internal/report"
)

// loadPreviousSnapshot reads the previous snapshot at the --out path. A
// missing or unreadable snapshot makes this a first run.
func loadPreviousSnapshot(cfg *config.Config, log *zap.Logger) *report.Report {
	prev, err := report.LoadSnapshot(cfg.Output.Out)
	if err != nil {
		log.Warn("ignoring previous snapshot", zap.String("path", cfg.Output.Out), zap.Error(err))
		return nil
	}
	return prev
}

// loadPreviousBroken returns the broken DB of the previous run: downloaded from
// --baseline-url when set, otherwise read from the --broken path. A failed
// download falls back to the local file; a failed read starts an empty DB.
func loadPreviousBroken(ctx context.Context, cfg *config.Config, p checks.Prober, log *zap.Logger) report.BrokenDB {
	if cfg.Output.BaselineURL != "" {
		db, err := downloadBrokenDB(ctx, cfg.Output.BaselineURL, p)
		if err == nil {
			log.Debug("loaded baseline", zap.String("url", cfg.Output.BaselineURL), zap.Int("entries", len(db)))
			return db
		}
		log.Warn("baseline download failed; using local broken database", zap.String("url", cfg.Output.BaselineURL), zap.Error(err))
	}
	if cfg.Output.Broken == "" {
		return report.BrokenDB{}
	}
	db, err := report.LoadBrokenDB(cfg.Output.Broken)
	if err != nil {
		log.Warn("ignoring previous broken database", zap.String("path", cfg.Output.Broken), zap.Error(err))
		return report.BrokenDB{}
	}
	return db
}

func downloadBrokenDB(ctx context.Context, rawURL string, p checks.Prober) (report.BrokenDB, error) {
	resp, err := p.Fetch(fetcher.WithBodyLimit(ctx, fetcher.MaxDocumentSize), rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return report.BrokenDB{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download %s: HTTP %d", rawURL, resp.StatusCode)
	case resp.Truncated:
		return nil, fmt.Errorf("failed to download %s: body too large", rawURL)
	}
	return report.ParseBrokenDB(resp.Body)
}
