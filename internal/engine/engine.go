package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eliwatch/internal/checks"
	"eliwatch/internal/config"
	"eliwatch/internal/fetcher"
	"eliwatch/internal/logging"
	"eliwatch/internal/output"
	"eliwatch/internal/report"
	"eliwatch/internal/source"
)

// Exit code contract:
// 0 = all artifacts written (per-source failures do not change it)
// 1 = fatal error (sources not loadable, invalid options, run canceled, artifacts not written)
const (
	ExitOK    = 0
	ExitFatal = 1
)

type Engine struct {
	Log    *zap.Logger
	Stdout io.Writer
	Stderr io.Writer

	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string

	// newProber is a test seam. If nil, Engine builds a fetcher from cfg.
	newProber func(cfg *config.Config, log *zap.Logger) checks.Prober
}

func NewEngine(log *zap.Logger) *Engine {
	return &Engine{
		Log:      log,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Now:      time.Now,
		NewRunID: uuid.NewString,
	}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr == nil {
		return os.Stderr
	}
	return e.Stderr
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) runID() string {
	if e.NewRunID == nil {
		return uuid.NewString()
	}
	return e.NewRunID()
}

// progress prints a status line on stderr unless the console is disabled.
func (e *Engine) progress(cfg *config.Config, format string, args ...any) {
	if cfg.Output.NoConsole {
		return
	}
	fmt.Fprintf(e.stderr(), format+"\n", args...)
}

func (e *Engine) fail(format string, args ...any) int {
	fmt.Fprintf(e.stderr(), format+"\n", args...)
	return ExitFatal
}

func (e *Engine) prober(cfg *config.Config, log *zap.Logger) checks.Prober {
	if e.newProber != nil {
		return e.newProber(cfg, log)
	}
	return fetcher.NewFetcher(
		fetcher.WithTimeout(cfg.Runtime.RequestTimeout),
		fetcher.WithUserAgent(cfg.Runtime.UserAgent),
		fetcher.WithBudget(fetcher.NewRequestBudget(cfg.Runtime.MaxRequests)),
		fetcher.WithLogger(log),
	)
}

func (e *Engine) setupOutputManager(cfg *config.Config, log *zap.Logger) (*output.Manager, error) {
	outMgr := output.NewManager(log)

	add := func(s output.Sink, err error) error {
		if err != nil {
			_ = outMgr.Close()
			return err
		}
		if err := outMgr.AddSink(s); err != nil {
			_ = outMgr.Close()
			return err
		}
		return nil
	}

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := add(output.NewConsoleSink(e.stdout(), cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus), nil); err != nil {
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		if err := add(output.NewEmitSink(e.stdout(), emit)); err != nil {
			return nil, err
		}
	}

	// Artifacts
	if err := add(output.NewSnapshotSink(cfg.Output.Out)); err != nil {
		return nil, err
	}
	if cfg.Output.HTML != "" {
		if err := add(output.NewHTMLSink(cfg.Output.HTML, cfg.Output.RegistryURL)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Broken != "" {
		if err := add(output.NewBrokenSink(cfg.Output.Broken)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Report != "" {
		if err := add(output.NewMarkdownSink(cfg.Output.Report)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.MetricsOut != "" {
		if err := add(output.NewMetricsSink(cfg.Output.MetricsOut)); err != nil {
			return nil, err
		}
	}

	return outMgr, nil
}

// applyCheckOptionsIfAny routes --set / config file options of the form
// "checkID.option=value" to the matching check's Configure method.
//
// Example:
//
//	eliwatch check sources --set imagery.tile_delay=0s --set license_url.insecure_tls=true
func applyCheckOptionsIfAny(cfg *config.Config) error {
	if len(cfg.Checks.Set) == 0 {
		return nil
	}

	assignments, err := config.ParseCheckOptionAssignments(cfg.Checks.Set)
	if err != nil {
		return err
	}

	for checkID, opts := range assignments {
		c, ok := checks.Lookup(checkID)
		if !ok {
			return fmt.Errorf("unknown check ID %q", checkID)
		}
		cc, ok := c.(checks.ConfigurableCheck)
		if !ok {
			return fmt.Errorf("check %q does not support options", checkID)
		}

		allowed := make(map[string]struct{})
		for _, opt := range cc.Options() {
			allowed[opt.Name] = struct{}{}
		}
		for name := range opts {
			if _, ok := allowed[name]; !ok {
				return fmt.Errorf("unknown option %q for check %q", name, checkID)
			}
		}

		if err := cc.Configure(opts); err != nil {
			return fmt.Errorf("configure check %q: %w", checkID, err)
		}
	}

	return nil
}

func (e *Engine) resolveAndConfigureChecks(cfg *config.Config) ([]checks.Check, error) {
	e.progress(cfg, "Resolving checks...")
	selected, err := checks.Resolve(cfg.Checks.Selector)
	if err != nil {
		return nil, fmt.Errorf("resolving checks: %w", err)
	}
	if err := applyCheckOptionsIfAny(cfg); err != nil {
		return nil, fmt.Errorf("configuring checks: %w", err)
	}
	e.progress(cfg, "Selected %d checks.", len(selected))
	return selected, nil
}

func buildPlan(srcs []*source.Source, selected []checks.Check) (*AuditPlan, error) {
	plan := NewAuditPlan(selected)
	for _, src := range srcs {
		if err := plan.AddSource(src); err != nil {
			return nil, fmt.Errorf("adding %s to plan: %w", src.Path, err)
		}
	}
	return plan, nil
}

func (e *Engine) executePlanStream(ctx context.Context, cfg *config.Config, plan *AuditPlan, p checks.Prober, log *zap.Logger) (<-chan SourceExecutionResult, <-chan error) {
	scheduler, err := NewScheduler(p, cfg.Runtime.Concurrency, log)
	if err != nil {
		resCh := make(chan SourceExecutionResult)
		errCh := make(chan error, 1)
		close(resCh)
		errCh <- err
		close(errCh)
		return resCh, errCh
	}
	scheduler.verbose = cfg.Runtime.LogLevel == "debug"
	return scheduler.Execute(ctx, plan)
}

// collectStreamingResults forwards per-source results to the sinks as they
// arrive and records them in the report.
func collectStreamingResults(resCh <-chan SourceExecutionResult, outMgr *output.Manager, rep *report.Report) {
	for res := range resCh {
		src := res.Plan.Source
		_ = outMgr.Write(output.Event{Type: output.EventSourceStarted, Source: src.Key()})
		for _, r := range res.Results {
			_ = outMgr.Write(r)
		}
		_ = outMgr.Write(output.Event{Type: output.EventSourceFinished, Source: src.Key(), Worst: string(res.Worst())})
		rep.Add(report.NewSourceResult(src, res.Results))
	}
}

// Run audits the sources tree described by cfg and writes every configured
// artifact. cfg must have been validated.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	log := logging.OrNop(e.Log)
	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}

	srcs, err := e.discoverSources(cfg, log)
	if err != nil {
		return e.fail("Error loading sources: %v", err)
	}

	selected, err := e.resolveAndConfigureChecks(cfg)
	if err != nil {
		return e.fail("Error: %v", err)
	}

	plan, err := buildPlan(srcs, selected)
	if err != nil {
		return e.fail("Error planning audit: %v", err)
	}

	if cfg.Input.DryRun {
		if err := plan.Describe(e.stdout()); err != nil {
			return e.fail("Error writing plan: %v", err)
		}
		return ExitOK
	}

	unlock, err := acquireRunLock(filepath.Dir(cfg.Output.Out))
	if err != nil {
		return e.fail("Error: %v", err)
	}
	defer unlock()

	p := e.prober(cfg, log)
	prev := loadPreviousSnapshot(cfg, log)
	prevBroken := loadPreviousBroken(ctx, cfg, p, log)

	outMgr, err := e.setupOutputManager(cfg, log)
	if err != nil {
		return e.fail("Error creating output sinks: %v", err)
	}

	runID := e.runID()
	started := e.now()
	rep := report.New(runID, started, cfg.Input.SourcesDir, plan.CheckIDs())

	log.Info("audit started", zap.String("run_id", runID), zap.Int("sources", len(plan.SourcePlans)), zap.Int("checks", len(plan.Checks)))
	e.progress(cfg, "Checking %d sources...", len(plan.SourcePlans))
	_ = outMgr.Write(output.Event{Type: output.EventRunStarted, RunID: runID, Sources: len(plan.SourcePlans), Checks: len(plan.Checks)})

	resCh, errCh := e.executePlanStream(ctx, cfg, plan, p, log)
	collectStreamingResults(resCh, outMgr, rep)

	var schedErr error
	// Drain scheduler errors; we only need to know whether any fatal error occurred (keep one non-nil error).
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}

	if schedErr != nil {
		// No report is written to the sinks, so no artifact is replaced.
		log.Error("audit aborted", zap.String("run_id", runID), zap.Error(schedErr))
		_ = outMgr.Write(output.Event{Type: output.EventRunFinished, RunID: runID, ExitCode: ExitFatal})
		_ = outMgr.Close()
		return e.fail("Audit aborted: %v", schedErr)
	}

	rep.Sort()
	rep.Delta = report.Compare(prev, rep)
	broken := report.Update(prevBroken, rep, started)

	_ = outMgr.Write(rep)
	_ = outMgr.Write(output.Event{Type: output.EventRunFinished, RunID: runID, ExitCode: ExitOK})
	if err := outMgr.Close(); err != nil {
		return e.fail("Error writing artifacts: %v", err)
	}

	log.Info("audit finished",
		zap.String("run_id", runID),
		zap.Int("sources", len(rep.Sources)),
		zap.Int("broken", len(broken)),
		zap.Duration("elapsed", e.now().Sub(started)),
	)
	return ExitOK
}
