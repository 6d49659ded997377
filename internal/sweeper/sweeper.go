// Package sweeper runs recurring maintenance jobs independent of request
// traffic.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Job is one named recurring task. Run reports how many rows it touched.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

var ErrUnknownJob = errors.New("unknown sweeper job")

// Sweeper owns one ticker goroutine per job. A job's runs never overlap
// with each other; Run implementations must still tolerate a concurrent
// RunNow.
type Sweeper struct {
	jobs   map[string]Job
	order  []string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func New(jobs ...Job) *Sweeper {
	s := &Sweeper{jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
	}
	return s
}

// Jobs returns the registered job names in registration order.
func (s *Sweeper) Jobs() []string {
	return append([]string(nil), s.order...)
}

// Start launches the tickers. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		job := s.jobs[name]
		if job.Interval <= 0 {
			slog.Warn("sweeper job has no interval, skipping", "component", "sweeper", "job", job.Name)
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	slog.Info("sweeper started", "component", "sweeper", "jobs", len(s.order))
}

func (s *Sweeper) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.execute(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the tickers and waits for running jobs to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// RunNow executes the named job immediately on the caller's goroutine.
func (s *Sweeper) RunNow(ctx context.Context, name string) (int64, error) {
	job, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

func (s *Sweeper) execute(ctx context.Context, job Job) (int64, error) {
	start := time.Now()
	n, err := job.Run(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		slog.Error("sweep failed",
			"component", "sweeper",
			"job", job.Name,
			"error", err,
			"latency_ms", latency,
		)
		sentry.CaptureException(fmt.Errorf("sweeper %s: %w", job.Name, err))
		return n, err
	}
	if n > 0 {
		slog.Info("sweep completed", "component", "sweeper", "job", job.Name, "affected", n, "latency_ms", latency)
	}
	return n, nil
}
