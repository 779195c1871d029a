package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"stockpile/internal/executor"
	"stockpile/internal/logging"
	"stockpile/internal/progress"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// Observer receives every forwarded progress event, including exactly one
// terminal event per item. It is called from the coordinating goroutine
// only, never concurrently.
type Observer func(work.Event)

// Runner executes one item to a terminal result. *executor.Executor
// satisfies it.
type Runner interface {
	Run(ctx context.Context, item work.Item, reporter executor.Reporter) work.Result
}

// Registrar records a successful item in the shared install manifest.
// Implementations must be safe for concurrent use across workers.
type Registrar interface {
	Register(ctx context.Context, item work.Item) error
	Finalize(ctx context.Context, items []work.Item) error
}

// Config sizes the pool.
type Config struct {
	// Workers caps concurrently running retrievals.
	Workers int
}

// Pool dispatches work items to bounded concurrent workers. A finished
// worker immediately picks up the next queued item; the pool never runs in
// waves. The only state shared between workers is the progress queue and
// the registrar's manifest lock.
type Pool struct {
	cfg       Config
	runner    Runner
	registrar Registrar
	logger    *slog.Logger
}

// New validates the configuration and builds a pool. A config the pool
// cannot be created from yields a scheduling error; callers should convert
// that into failed-to-start results via FailAll.
func New(cfg Config, runner Runner, registrar Registrar, logger *slog.Logger) (*Pool, error) {
	if runner == nil {
		return nil, services.Wrap(services.ErrScheduling, "pool", "new", "runner is required", nil)
	}
	if cfg.Workers < 1 {
		return nil, services.Wrap(services.ErrScheduling, "pool", "new",
			fmt.Sprintf("worker count must be at least 1, got %d", cfg.Workers), nil)
	}
	return &Pool{
		cfg:       cfg,
		runner:    runner,
		registrar: registrar,
		logger:    logging.NewComponentLogger(logger, "pool"),
	}, nil
}

// FailAll produces one failed-to-start result per item. Used when the pool
// itself could not be created so the caller still receives exactly one
// result per item instead of hanging.
func FailAll(items []work.Item, cause error) []work.Result {
	message := "worker pool failed to start"
	if cause != nil {
		message = cause.Error()
	}
	results := make([]work.Result, len(items))
	for i, item := range items {
		results[i] = work.Result{ID: item.ID, ErrorMessage: message}
	}
	return results
}

// Run executes all items under the concurrency cap and returns one result
// per item in submission order. observer may be nil. Cancellation is
// non-preemptive: a cancelled context stops new starts while running
// workers finish and report.
func (p *Pool) Run(ctx context.Context, items []work.Item, observer Observer) []work.Result {
	if len(items) == 0 {
		return nil
	}

	queue := progress.NewQueue()
	resultCh := make(chan work.Result, len(items))

	itemCh := make(chan work.Item, len(items))
	for _, item := range items {
		queue.Publish(work.Event{
			ID:       item.ID,
			Label:    item.DisplayLabel(),
			Kind:     work.EventQueued,
			Status:   "queued",
			Category: item.Category,
		})
		itemCh <- item
	}
	close(itemCh)

	workers := p.cfg.Workers
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				p.runOne(ctx, item, queue, resultCh)
			}
		}()
	}

	results := p.coordinate(ctx, items, queue, resultCh, observer)
	wg.Wait()

	if p.registrar != nil {
		if err := p.registrar.Finalize(ctx, items); err != nil {
			p.logger.Error("manifest finalize failed", logging.Error(err))
		}
	}
	return results
}

// runOne executes a single item, converts panics into failed results, and
// always emits exactly one terminal event after its result is recorded.
func (p *Pool) runOne(ctx context.Context, item work.Item, queue *progress.Queue, resultCh chan<- work.Result) {
	var result work.Result

	finish := func() {
		// The result must be buffered before the terminal event so the
		// coordinator can always resolve the event to a result.
		resultCh <- result

		kind := work.EventFailed
		status := result.ErrorMessage
		if result.Success {
			kind = work.EventSucceeded
			status = "retrieved via " + result.Method
		}
		queue.Publish(work.Event{
			ID:       item.ID,
			Label:    item.DisplayLabel(),
			Kind:     kind,
			Status:   status,
			Category: item.Category,
		})
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic converted to failure",
				logging.String(logging.FieldTaskID, item.ID),
				logging.Any("panic", r),
			)
			result = work.Result{ID: item.ID, ErrorMessage: fmt.Sprintf("worker panic: %v", r)}
			finish()
		}
	}()

	if err := ctx.Err(); err != nil {
		result = work.Result{ID: item.ID, ErrorMessage: "cancelled before start: " + err.Error()}
		finish()
		return
	}

	itemCtx := services.WithTaskID(ctx, item.ID)
	itemCtx = services.WithCategory(itemCtx, item.Category)

	result = p.runner.Run(itemCtx, item, queue)

	if result.Success && item.Installer != nil && p.registrar != nil {
		if err := p.registrar.Register(itemCtx, item); err != nil {
			logging.WithContext(itemCtx, p.logger).Error("manifest registration failed", logging.Error(err))
			result.Success = false
			result.ErrorMessage = "manifest registration failed: " + err.Error()
		}
	}
	finish()
}

// coordinate drains the progress queue, forwards fresh events to the
// observer, suppresses events for items already terminal, and resolves
// terminal events into results. It returns once every item has exactly one
// result; pending events are always drained before and after a completion
// is recorded, so a final progress event can never trail its own terminal.
func (p *Pool) coordinate(ctx context.Context, items []work.Item, queue *progress.Queue, resultCh <-chan work.Result, observer Observer) []work.Result {
	terminal := make(map[string]bool, len(items))
	byID := make(map[string]work.Result, len(items))
	completed := 0

	forward := func(events []work.Event) {
		for _, evt := range events {
			if terminal[evt.ID] {
				// Stale: the item already finished.
				continue
			}
			if evt.Kind.Terminal() {
				result, ok := takeResult(resultCh, evt.ID, byID)
				if !ok {
					// The worker buffers its result before publishing the
					// terminal event, so this cannot happen in practice.
					result = work.Result{ID: evt.ID, ErrorMessage: "result lost"}
					byID[evt.ID] = result
				}
				terminal[evt.ID] = true
				completed++
			}
			if observer != nil {
				observer(evt)
			}
		}
	}

	for completed < len(items) {
		events, err := queue.DrainWait(ctx)
		forward(events)
		if err != nil && completed < len(items) {
			// Context ended: workers still produce one result per item
			// (cancelled-before-start for anything unstarted), so keep
			// draining without the context until the ledger is complete.
			remaining, _ := queue.DrainWait(context.Background())
			forward(remaining)
		}
	}
	// Anything still queued is stale by definition; drop it.
	queue.DrainReady()

	results := make([]work.Result, 0, len(items))
	for _, item := range items {
		if result, ok := byID[item.ID]; ok {
			results = append(results, result)
		} else {
			results = append(results, work.Result{ID: item.ID, ErrorMessage: "no result produced"})
		}
	}
	return results
}

// takeResult retrieves the buffered result for id, caching any other
// results read along the way.
func takeResult(resultCh <-chan work.Result, id string, byID map[string]work.Result) (work.Result, bool) {
	if result, ok := byID[id]; ok {
		return result, ok
	}
	for {
		select {
		case result := <-resultCh:
			byID[result.ID] = result
			if result.ID == id {
				return result, true
			}
		default:
			return work.Result{}, false
		}
	}
}
