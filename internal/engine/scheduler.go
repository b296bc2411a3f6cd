package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"eliwatch/internal/checks"
	"eliwatch/internal/logging"
)

type Scheduler struct {
	prober      checks.Prober
	concurrency int
	verbose     bool
	log         *zap.Logger
}

func NewScheduler(p checks.Prober, concurrency int, log *zap.Logger) (*Scheduler, error) {
	if p == nil {
		return nil, errors.New("prober is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{prober: p, concurrency: concurrency, log: logging.OrNop(log)}, nil
}

// Execute streams per-source check results.
//
// Channel semantics:
//   - In the normal (non-canceled) case, exactly one SourceExecutionResult is
//     sent per source, carrying one checks.Result per planned check.
//   - On context cancellation, the scheduler stops promptly; it may emit fewer than N results.
//   - The results channel and error channel are both closed reliably.
//   - The error channel is used for fatal errors / cancellation signals; check
//     failures are reported as error results.
func (s *Scheduler) Execute(ctx context.Context, plan *AuditPlan) (<-chan SourceExecutionResult, <-chan error) {
	resultsCh := make(chan SourceExecutionResult)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if plan == nil {
			trySendErr(errors.New("audit plan is nil"))
			return
		}
		if s == nil {
			trySendErr(errors.New("scheduler is nil"))
			return
		}
		if s.prober == nil {
			trySendErr(errors.New("scheduler prober is nil"))
			return
		}
		if s.concurrency <= 0 {
			trySendErr(fmt.Errorf("scheduler concurrency must be >= 1, got %d", s.concurrency))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Limit active sources (favor source completion).
		sem := make(chan struct{}, s.concurrency)
		var wg sync.WaitGroup
		var fatalErr error

	scheduleLoop:
		for _, sp := range plan.SourcePlans {
			if runCtx.Err() != nil {
				break
			}
			if sp == nil || sp.Source == nil {
				fatalErr = errors.New("nil source plan")
				cancel()
				break
			}

			select {
			case sem <- struct{}{}:
				// acquired
			case <-runCtx.Done():
				break scheduleLoop
			}

			wg.Add(1)
			go func(sp *SourcePlan) {
				defer wg.Done()
				defer func() { <-sem }()

				results := make([]checks.Result, 0, len(sp.Checks))
				for _, c := range sp.Checks {
					if runCtx.Err() != nil {
						return
					}
					results = append(results, s.evaluate(runCtx, sp, c))
				}

				if runCtx.Err() != nil {
					return
				}

				select {
				case resultsCh <- SourceExecutionResult{Plan: sp, Results: results}:
				case <-runCtx.Done():
					return
				}
			}(sp)
		}

		wg.Wait()
		if fatalErr != nil {
			trySendErr(fatalErr)
			return
		}
		trySendErr(ctx.Err())
	}()

	return resultsCh, errCh
}

// evaluate runs one check. Errors and panics become results so that every
// planned check yields exactly one outcome.
func (s *Scheduler) evaluate(ctx context.Context, sp *SourcePlan, c checks.Check) (res checks.Result) {
	src := sp.Source
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("check panicked", zap.String("check", c.ID()), zap.String("source", src.Path), zap.Any("panic", r))
			res = checks.ErrorResult(src, c.ID(), fmt.Sprintf("Check panicked: %v", r))
		}
	}()

	res, err := c.Evaluate(ctx, src, s.prober)
	if err != nil {
		status, msg := presentCheckError(err, s.verbose)
		s.log.Debug("check failed", zap.String("check", c.ID()), zap.String("source", src.Path), zap.Error(err))
		return checks.NewResult(src, c.ID(), status, msg)
	}

	// Backfill identifiers so output stays consistent and well-formed.
	if res.CheckID == "" {
		res.CheckID = c.ID()
	}
	if res.Source == "" {
		res.Source = src.Key()
	}
	if !res.Status.Valid() {
		return checks.ErrorResult(src, c.ID(), fmt.Sprintf("Check returned invalid status %q", res.Status))
	}
	return res
}
