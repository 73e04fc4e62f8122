// Package requestqueue bounds the number of concurrently running tasks.
// Tasks beyond the limit wait in a FIFO list and start, in arrival order,
// as running tasks finish.
package requestqueue

import (
	"container/list"
	"context"
	"sync"
)

// Observer is notified whenever queue occupancy changes
type Observer interface {
	QueueChanged(name string, inFlight, waiting int)
}

// Stats is a snapshot of queue occupancy
type Stats struct {
	Limit     int    `json:"limit"`
	InFlight  int    `json:"in_flight"`
	Waiting   int    `json:"waiting"`
	HighWater int    `json:"high_water"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// Queue is a FIFO concurrency limiter.
// The wait list is unbounded: callers beyond the limit wait until a slot
// frees or their context is done.
type Queue struct {
	name     string
	limit    int
	observer Observer

	mu        sync.Mutex
	inFlight  int
	waiters   *list.List // of chan struct{}
	highWater int
	completed uint64
	failed    uint64
}

// Option configures a Queue
type Option func(*Queue)

// WithName labels the queue for observers
func WithName(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

// WithObserver registers an occupancy observer
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// New creates a queue running at most limit tasks at once (minimum 1)
func New(limit int, opts ...Option) *Queue {
	if limit < 1 {
		limit = 1
	}
	q := &Queue{
		name:    "default",
		limit:   limit,
		waiters: list.New(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Do runs task once a slot is free and returns its result.
// A started task is never interrupted by the queue; ctx only bounds the
// time spent waiting for a slot (and is passed through to task).
func Do[T any](ctx context.Context, q *Queue, task func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := q.acquire(ctx); err != nil {
		return zero, err
	}

	ok := false
	defer func() { q.release(ok) }()

	result, err := task(ctx)
	ok = err == nil
	return result, err
}

// Enqueue is Do for tasks without a result value
func (q *Queue) Enqueue(ctx context.Context, task func(context.Context) error) error {
	_, err := Do(ctx, q, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})
	return err
}

// Limit returns the concurrency ceiling
func (q *Queue) Limit() int {
	return q.limit
}

// Stats returns a snapshot of queue occupancy
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Limit:     q.limit,
		InFlight:  q.inFlight,
		Waiting:   q.waiters.Len(),
		HighWater: q.highWater,
		Completed: q.completed,
		Failed:    q.failed,
	}
}

func (q *Queue) acquire(ctx context.Context) error {
	q.mu.Lock()
	if q.inFlight < q.limit && q.waiters.Len() == 0 {
		q.inFlight++
		if q.inFlight > q.highWater {
			q.highWater = q.inFlight
		}
		q.notifyLocked()
		q.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	elem := q.waiters.PushBack(ready)
	q.notifyLocked()
	q.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		select {
		case <-ready:
			// The slot was handed to us while we were giving up.
			q.mu.Unlock()
			q.handBack()
		default:
			q.waiters.Remove(elem)
			q.notifyLocked()
			q.mu.Unlock()
		}
		return ctx.Err()
	}
}

// release frees the caller's slot, handing it directly to the oldest waiter
// so the in-flight count never exceeds the limit.
func (q *Queue) release(ok bool) {
	q.mu.Lock()
	if ok {
		q.completed++
	} else {
		q.failed++
	}
	q.mu.Unlock()
	q.handBack()
}

func (q *Queue) handBack() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if front := q.waiters.Front(); front != nil {
		q.waiters.Remove(front)
		close(front.Value.(chan struct{}))
	} else {
		q.inFlight--
	}
	q.notifyLocked()
}

func (q *Queue) notifyLocked() {
	if q.observer != nil {
		q.observer.QueueChanged(q.name, q.inFlight, q.waiters.Len())
	}
}
