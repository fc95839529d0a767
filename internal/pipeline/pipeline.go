package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/courtgrid/internal/auth"
	"github.com/nao1215/courtgrid/internal/model"
)

// ErrPassBudgetExhausted is returned when the configured maximum number
// of passes elapsed without completing the tree. The snapshot keeps the
// partial progress, so the next invocation resumes where this one
// stopped.
var ErrPassBudgetExhausted = errors.New("pass budget exhausted before tree completed")

// Run is the mutable state of one category harvest, threaded through
// every step and pass.
type Run struct {
	// Tree is the crawl tree, loaded from a snapshot or freshly created.
	Tree *model.Tree

	// Counter is the judge record count carried between passes.
	Counter int

	// Session is the authenticated portal session, nil until the
	// authenticate step has run. The runner drops it between passes
	// because the portal invalidates idle sessions.
	Session *auth.Session

	// Pass is the current pass number, starting at 1.
	Pass int

	// Err records the run outcome for batch processing.
	Err error
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence within a pass, each mutating the run.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry configuration state
//  2. It provides a Name() method for logging and debugging
//  3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step. Returns an error if the step
	// fails; transient failures within a step should be absorbed into
	// the tree (sentinels) and return nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// PassHook is called after every pass, successful or not, so the driver
// can persist the snapshot and record pass history. A hook failure ends
// the run: losing persistence makes further passes pointless.
type PassHook func(ctx context.Context, run *Run, startedAt time.Time, passErr error) error

// Runner drives passes over a run until its tree completes.
type Runner struct {
	// steps contains the ordered list of steps executed each pass.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// passDelay is the pause between passes.
	passDelay time.Duration

	// maxPasses bounds the number of passes; zero means unbounded.
	maxPasses int

	// passHook is invoked after every pass.
	passHook PassHook
}

// Option is a function that configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPassDelay sets the pause between passes.
func WithPassDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.passDelay = d
		}
	}
}

// WithMaxPasses bounds the number of passes. Zero means run until the
// tree completes or the operator cancels.
func WithMaxPasses(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxPasses = n
		}
	}
}

// WithPassHook sets the after-pass persistence hook.
func WithPassHook(hook PassHook) Option {
	return func(r *Runner) {
		r.passHook = hook
	}
}

// New creates a new Runner with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Runner {
	r := &Runner{
		steps:     make([]Step, 0),
		logger:    slog.Default(),
		passDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddStep appends a step to the runner.
// Steps are executed in the order they are added, once per pass.
func (r *Runner) AddStep(step Step) {
	r.steps = append(r.steps, step)
}

// AddSteps appends multiple steps to the runner.
func (r *Runner) AddSteps(steps ...Step) {
	r.steps = append(r.steps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (r *Runner) StepNames() []string {
	names := make([]string, len(r.steps))
	for i, step := range r.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs passes until run.Tree completes.
//
// Failure handling per pass:
//   - Cancellation ends the run immediately with the context error.
//   - Authentication exhaustion ends the run; the retry budget inside
//     the authenticate step already absorbed the recoverable failures.
//   - Any other pass error is logged and retried after the pass delay,
//     bounded by the pass budget.
func (r *Runner) Execute(ctx context.Context, run *Run) error {
	// A snapshot loaded in a complete state needs no passes at all, so
	// resuming it never touches the portal.
	if run.Tree.Done() {
		r.logger.InfoContext(ctx, "tree already complete",
			"category", run.Tree.Category, "judges", run.Counter)
		return nil
	}

	for pass := 1; ; pass++ {
		run.Pass = pass
		startedAt := time.Now()

		passErr := r.executePass(ctx, run)

		if r.passHook != nil {
			if hookErr := r.passHook(ctx, run, startedAt, passErr); hookErr != nil {
				return hookErr
			}
		}

		if passErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(passErr, auth.ErrAuthentication) {
				return passErr
			}
			r.logger.WarnContext(ctx, "pass failed, will retry",
				"pass", pass, "error", passErr)
		}

		if run.Tree.Done() {
			r.logger.InfoContext(ctx, "tree complete",
				"pass", pass, "judges", run.Counter)
			return nil
		}

		if r.maxPasses > 0 && pass >= r.maxPasses {
			return ErrPassBudgetExhausted
		}

		// A fresh pass gets a fresh session: sentinels usually mean the
		// portal dropped the session server-side.
		run.Session = nil

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.passDelay):
		}
	}
}

// executePass runs all steps once in sequence.
func (r *Runner) executePass(ctx context.Context, run *Run) error {
	for _, step := range r.steps {
		select {
		case <-ctx.Done():
			r.logger.WarnContext(ctx, "pass cancelled",
				"step", step.Name(), "pass", run.Pass)
			return ctx.Err()
		default:
		}

		r.logger.InfoContext(ctx, "executing step",
			"step", step.Name(),
			"pass", run.Pass,
			"category", run.Tree.Category,
		)

		if err := step.Do(ctx, run); err != nil {
			r.logger.ErrorContext(ctx, "step failed",
				"step", step.Name(),
				"pass", run.Pass,
				"category", run.Tree.Category,
				"error", err,
			)
			return err
		}
	}
	return nil
}
