package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibetube/internal/logging"
	"vibetube/internal/services"
)

// Task is one scheduled unit of loop work.
type Task interface {
	Name() string
	// RunOnce performs one iteration and returns how long the loop waits
	// before the next. An error is logged; the returned wait still applies.
	RunOnce(ctx context.Context) (time.Duration, error)
}

// Reporter is implemented by tasks that describe their last iteration.
type Reporter interface {
	LastResult() string
}

// DefaultTick is the cancellation granularity of loop waits.
const DefaultTick = time.Second

// LoopStatus is a snapshot of one loop.
type LoopStatus struct {
	Name       string
	Running    bool
	Iterations int
	LastRun    time.Time
	NextRun    time.Time
	LastError  string
	LastResult string
}

// Loop runs a Task repeatedly until stopped.
type Loop struct {
	task   Task
	tick   time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{} // closed when the current or last run exits
	iterations int
	lastRun    time.Time
	nextRun    time.Time
	lastErr    error
}

// NewLoop wraps task. A non-positive tick uses DefaultTick.
func NewLoop(task Task, tick time.Duration, logger *slog.Logger) *Loop {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Loop{
		task:   task,
		tick:   tick,
		logger: logging.NewComponentLogger(logger, "loop").With(logging.String(logging.FieldLoop, task.Name())),
	}
}

// Name returns the task name.
func (l *Loop) Name() string { return l.task.Name() }

// Start launches the loop goroutine. It reports false when already running.
// A run that is still winding down after Stop is waited for first, so two
// iterations of the same task never overlap.
func (l *Loop) Start(parent context.Context) bool {
	for {
		l.mu.Lock()
		if l.running {
			l.mu.Unlock()
			return false
		}
		if prev := l.done; prev != nil {
			select {
			case <-prev:
			default:
				l.mu.Unlock()
				<-prev
				continue
			}
		}
		ctx, cancel := context.WithCancel(services.WithLoop(parent, l.task.Name()))
		done := make(chan struct{})
		l.cancel = cancel
		l.done = done
		l.running = true
		go l.run(ctx, done)
		l.mu.Unlock()
		l.logger.Info("loop started", logging.String(logging.FieldEventType, "loop_started"))
		return true
	}
}

// Stop cancels the loop and waits for the current iteration to finish. It
// reports false when the loop was not running.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return false
	}
	cancel, done := l.cancel, l.done
	l.running = false
	l.cancel = nil
	l.mu.Unlock()

	cancel()
	<-done
	l.logger.Info("loop stopped", logging.String(logging.FieldEventType, "loop_stopped"))
	return true
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() LoopStatus {
	l.mu.Lock()
	status := LoopStatus{
		Name:       l.task.Name(),
		Running:    l.running,
		Iterations: l.iterations,
		LastRun:    l.lastRun,
		NextRun:    l.nextRun,
	}
	if l.lastErr != nil {
		status.LastError = l.lastErr.Error()
	}
	l.mu.Unlock()
	if reporter, ok := l.task.(Reporter); ok {
		status.LastResult = reporter.LastResult()
	}
	return status
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		passCtx := services.WithRequestID(ctx, uuid.NewString())
		wait, err := l.task.RunOnce(passCtx)
		if err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(logging.WithContext(passCtx, l.logger), "loop iteration failed", "loop_iteration_failed",
				logging.Error(err),
				logging.String("failure_kind", services.FailureKind(err)),
				logging.Duration("retry_in", wait),
			)
		}

		now := time.Now()
		l.mu.Lock()
		l.iterations++
		l.lastRun = now
		l.nextRun = now.Add(wait)
		l.lastErr = err
		l.mu.Unlock()

		if !Sleep(ctx, wait, l.tick) {
			return
		}
	}
}

// Sleep waits for d, checking ctx every tick. It returns false when ctx was
// cancelled first.
func Sleep(ctx context.Context, d, tick time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ctx.Err() == nil
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
