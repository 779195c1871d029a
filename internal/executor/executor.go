package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"stockpile/internal/logging"
	"stockpile/internal/methods"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// Verifier confirms that an item's expected side effect actually exists.
// A strategy reporting success without a verified artifact is treated as a
// transient failure.
type Verifier func(item work.Item) error

// Reporter receives per-attempt progress events. progress.Queue satisfies it.
type Reporter interface {
	Publish(work.Event)
}

// Executor drives one logical operation through an ordered strategy chain
// with retry, backoff, and fallback.
type Executor struct {
	chain       []methods.Strategy
	retries     int
	backoffBase time.Duration
	verify      Verifier
	logger      *slog.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures optional Executor behavior.
type Option func(*Executor)

// WithVerifier overrides the default artifact verification.
func WithVerifier(v Verifier) Option {
	return func(e *Executor) { e.verify = v }
}

// WithSleep overrides the backoff sleeper (tests only).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// New constructs an executor. retries is the number of retries per strategy
// beyond the first attempt; zero means exactly one attempt per strategy.
func New(chain []methods.Strategy, retries int, backoffBase time.Duration, logger *slog.Logger, opts ...Option) *Executor {
	if retries < 0 {
		retries = 0
	}
	e := &Executor{
		chain:       chain,
		retries:     retries,
		backoffBase: backoffBase,
		verify:      verifyArtifact,
		logger:      logging.NewComponentLogger(logger, "executor"),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run attempts the item through the strategy chain and always returns a
// terminal Result. reporter may be nil.
func (e *Executor) Run(ctx context.Context, item work.Item, reporter Reporter) work.Result {
	started := time.Now()
	result := work.Result{ID: item.ID}

	finish := func(res work.Result) work.Result {
		res.Metrics.Duration = time.Since(started)
		return res
	}

	if len(e.chain) == 0 {
		err := services.Wrap(services.ErrTerminal, "executor", "run", "no retrieval methods configured", nil)
		result.ErrorMessage = err.Error()
		return finish(result)
	}

	var lastErr error
	attempted := make([]string, 0, len(e.chain))

	for _, strategy := range e.chain {
		methodCtx := services.WithMethod(ctx, strategy.Name())
		logger := logging.WithContext(methodCtx, e.logger)
		attempted = append(attempted, strategy.Name())

	attempts:
		for attempt := 1; attempt <= e.retries+1; attempt++ {
			if attempt > 1 {
				delay := e.backoffBase * time.Duration(attempt-1)
				if err := e.sleep(ctx, delay); err != nil {
					lastErr = services.Wrap(services.ErrTransient, "executor", "backoff", "cancelled", err)
					break attempts
				}
			}
			result.Metrics.Attempts++
			publish(reporter, item, work.EventAttempting,
				fmt.Sprintf("attempt %d via %s", attempt, strategy.Name()))

			written, err := strategy.Fetch(methodCtx, item)
			if err == nil {
				if verr := e.verify(item); verr != nil {
					err = services.Wrap(services.ErrTransient, strategy.Name(), "verify",
						"method reported success but artifact is missing", verr)
				} else {
					result.Success = true
					result.Method = strategy.Name()
					result.Metrics.BytesTransferred = written
					logger.Info("retrieval succeeded",
						logging.Int(logging.FieldAttempt, attempt),
						logging.Int64("bytes", written),
					)
					return finish(result)
				}
			}

			lastErr = err
			switch {
			case services.IsTerminal(err):
				logger.Warn("terminal failure, abandoning chain", logging.Error(err))
				publish(reporter, item, work.EventMethodFailed, err.Error())
				result.ErrorMessage = err.Error()
				return finish(result)
			case services.IsEnvironment(err):
				logger.Debug("environment failure, advancing to next method", logging.Error(err))
				publish(reporter, item, work.EventMethodFailed, err.Error())
				break attempts
			default:
				logger.Debug("transient failure",
					logging.Int(logging.FieldAttempt, attempt),
					logging.Error(err),
				)
				publish(reporter, item, work.EventAttemptFailed, err.Error())
			}
		}
	}

	if lastErr == nil {
		lastErr = services.Wrap(services.ErrTerminal, "executor", "run",
			"all methods exhausted: "+strings.Join(attempted, ", "), nil)
	}
	result.ErrorMessage = lastErr.Error()
	return finish(result)
}

// verifyArtifact is the default side-effect check: the destination file must
// exist and be non-empty.
func verifyArtifact(item work.Item) error {
	info, err := os.Stat(item.Destination)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("destination %s is a directory", item.Destination)
	}
	if info.Size() == 0 {
		return fmt.Errorf("destination %s is empty", item.Destination)
	}
	return nil
}

func publish(reporter Reporter, item work.Item, kind work.EventKind, status string) {
	if reporter == nil {
		return
	}
	reporter.Publish(work.Event{
		ID:       item.ID,
		Label:    item.DisplayLabel(),
		Kind:     kind,
		Status:   status,
		Category: item.Category,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
