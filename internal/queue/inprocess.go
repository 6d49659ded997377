package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// InProcess runs each enqueued task on its own goroutine inside the API
// process. It is the queue used when no Redis broker is configured, and it
// satisfies both Client and Server.
//
// Tasks still running at shutdown are abandoned once Stop's context expires.
type InProcess struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	timeout  time.Duration
	wg       sync.WaitGroup
	seq      atomic.Uint64
	closed   atomic.Bool
	sem      chan struct{}
}

var (
	_ Client = (*InProcess)(nil)
	_ Server = (*InProcess)(nil)
)

var ErrQueueClosed = errors.New("queue: closed")

// NewInProcess returns a queue running at most concurrency tasks at once,
// each bounded by timeout.
func NewInProcess(concurrency int, timeout time.Duration) *InProcess {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &InProcess{
		handlers: make(map[string]Handler),
		timeout:  timeout,
		sem:      make(chan struct{}, concurrency),
	}
}

func (q *InProcess) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *InProcess) Enqueue(_ context.Context, t Task) (string, error) {
	if t.Type == "" {
		return "", errors.New("queue: task type is required")
	}
	if q.closed.Load() {
		return "", ErrQueueClosed
	}

	q.mu.RLock()
	h, ok := q.handlers[t.Type]
	q.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("queue: no handler for %q", t.Type)
	}

	id := strconv.FormatUint(q.seq.Add(1), 10)
	q.wg.Add(1)
	go q.run(id, t, h)
	return id, nil
}

func (q *InProcess) run(id string, t Task, h Handler) {
	defer q.wg.Done()

	q.sem <- struct{}{}
	defer func() { <-q.sem }()

	// Detached from the request context: the caller has already returned.
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("queue: task %s panicked: %v", t.Type, r)
			slog.Error("task panicked", "component", "queue", "task_type", t.Type, "task_id", id, "error", err)
			sentry.CaptureException(err)
		}
	}()

	start := time.Now()
	if err := h(ctx, t); err != nil {
		slog.Error("task failed",
			"component", "queue",
			"task_type", t.Type,
			"task_id", id,
			"error", err,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		sentry.CaptureException(fmt.Errorf("task %s: %w", t.Type, err))
	}
}

// Run blocks until ctx is cancelled. Tasks start as soon as they are
// enqueued, so there is nothing to poll.
func (q *InProcess) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Wait blocks until every enqueued task has finished.
func (q *InProcess) Wait() {
	q.wg.Wait()
}

// Stop refuses new tasks and waits for in-flight ones until ctx expires.
func (q *InProcess) Stop(ctx context.Context) error {
	q.closed.Store(true)
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InProcess) Close() error {
	q.closed.Store(true)
	return nil
}
