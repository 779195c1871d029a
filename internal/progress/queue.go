package progress

import (
	"context"
	"sync"
	"time"

	"stockpile/internal/work"
)

// Queue is an unbounded FIFO event queue with many producers and a single
// consuming coordinator. Publish never blocks; the consumer parks on a
// condition variable so there is no polling delay between an event being
// published and the coordinator observing it.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []work.Event
}

// NewQueue constructs an empty progress queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Publish appends an event and wakes the consumer. Safe for concurrent use;
// never blocks regardless of consumer state.
func (q *Queue) Publish(evt work.Event) {
	if q == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	q.mu.Lock()
	q.pending = append(q.pending, evt)
	q.cond.Broadcast()
	q.mu.Unlock()
}

// DrainReady removes and returns all pending events without waiting.
// Events are returned in publish order.
func (q *Queue) DrainReady() []work.Event {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// DrainWait blocks until at least one event is pending or the context ends,
// then drains like DrainReady. A context error is returned with whatever
// events were already pending.
func (q *Queue) DrainWait(ctx context.Context) ([]work.Event, error) {
	if q == nil {
		return nil, nil
	}

	cancelWait := make(chan struct{})
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				q.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.pending) > 0 {
			out := q.pending
			q.pending = nil
			return out, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
