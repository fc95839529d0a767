package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchRunner harvests multiple categories, each as an independent run.
//
// Design decision: We use a separate BatchRunner rather than adding
// multi-category handling to Runner because:
//  1. It keeps the Runner focused on single-category execution
//  2. Categories share nothing on the portal side: each run has its
//     own session, tree, and snapshot row, so a bounded number can
//     proceed concurrently without violating the one-request-at-a-time
//     rule that holds within a session
type BatchRunner struct {
	// runnerFor creates a fresh runner per run so pass state never
	// leaks between categories. It receives the run so wiring can
	// honor per-category configuration.
	runnerFor func(*Run) *Runner

	// concurrency is the maximum number of categories harvested at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithConcurrency sets the maximum number of concurrent category runs.
// Default is 2: the portal tolerates a couple of parallel sessions but
// throttles beyond that.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner.
//
// The runnerFor function is called for each run to create a fresh
// Runner instance, so pass counters and hooks never leak between
// categories.
func NewBatchRunner(runnerFor func(*Run) *Runner, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		runnerFor:   runnerFor,
		concurrency: 2,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessBatch harvests all runs, a bounded number concurrently.
// Per-run failures are recorded in each run's Err field and do not stop
// the other runs; the error return reports cancellation only.
func (b *BatchRunner) ProcessBatch(ctx context.Context, runs []*Run) error {
	b.logger.InfoContext(ctx, "starting batch harvest",
		"categories", len(runs),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, run := range runs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				run.Err = ctx.Err()
				return ctx.Err()
			default:
			}

			b.logger.InfoContext(ctx, "harvesting category",
				"category", run.Tree.Category)

			run.Err = b.runnerFor(run).Execute(ctx, run)
			if run.Err != nil {
				b.logger.WarnContext(ctx, "category harvest failed",
					"category", run.Tree.Category,
					"error", run.Err,
				)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Other categories keep going; the failure stays on
				// the run.
				return nil
			}

			b.logger.InfoContext(ctx, "category harvest complete",
				"category", run.Tree.Category)
			return nil
		})
	}

	err := g.Wait()

	b.logger.InfoContext(ctx, "batch harvest finished",
		"categories", len(runs),
		"elapsed", time.Since(startTime),
	)
	return err
}
