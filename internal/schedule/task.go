// Package schedule provides a cancellable periodic task.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/problem-dashboard/internal/clock"
)

// ErrInvalidInterval is returned for non-positive intervals.
var ErrInvalidInterval = errors.New("interval must be positive")

// Task runs a function on every tick of a clock ticker until stopped.
// At most one loop goroutine exists at a time.
type Task struct {
	name  string
	clock clock.Clock
	fn    func(ctx context.Context)

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTask creates a stopped task.
func NewTask(name string, clk clock.Clock, fn func(ctx context.Context)) *Task {
	return &Task{
		name:  name,
		clock: clk,
		fn:    fn,
	}
}

// Start launches the loop with the given interval.
// Starting a running task restarts it with the new interval.
func (t *Task) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := t.clock.NewTicker(interval)

	t.interval = interval
	t.cancel = cancel
	t.done = done

	slog.Debug("scheduled task started", "task", t.name, "interval", interval)

	go t.run(ctx, ticker, done)
	return nil
}

// Reset restarts a running task with a new interval.
// On a stopped task it only records the interval.
func (t *Task) Reset(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	t.mu.Lock()
	running := t.cancel != nil
	if !running {
		t.interval = interval
	}
	t.mu.Unlock()

	if !running {
		return nil
	}
	return t.Start(interval)
}

// Stop cancels the loop and waits for it to exit. Stopping twice is safe.
// Stop must not be called from inside the task function.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Interval returns the last configured interval.
func (t *Task) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *Task) stopLocked() {
	if t.cancel == nil {
		return
	}

	t.cancel()
	<-t.done

	t.cancel = nil
	t.done = nil

	slog.Debug("scheduled task stopped", "task", t.name)
}

func (t *Task) run(ctx context.Context, ticker clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx)
		}
	}
}
