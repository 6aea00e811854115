package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vibetube/internal/logging"
)

// Loop names.
const (
	LoopQueue   = "queue"
	LoopPoller  = "poller"
	LoopScanner = "scanner"
)

// ErrUnknownLoop is returned for a loop name the manager does not own.
var ErrUnknownLoop = errors.New("unknown loop")

// Manager supervises the background loops.
type Manager struct {
	logger *slog.Logger

	mu    sync.Mutex
	base  context.Context
	loops map[string]*Loop
	order []string
}

// NewManager constructs a Manager owning one loop per task.
func NewManager(logger *slog.Logger, tick time.Duration, tasks ...Task) *Manager {
	m := &Manager{
		logger: logging.NewComponentLogger(logger, "workflow"),
		base:   context.Background(),
		loops:  make(map[string]*Loop, len(tasks)),
	}
	for _, task := range tasks {
		if task == nil {
			continue
		}
		m.loops[task.Name()] = NewLoop(task, tick, logger)
		m.order = append(m.order, task.Name())
	}
	return m
}

// Bind sets the parent context for loops started later with StartLoop.
func (m *Manager) Bind(ctx context.Context) {
	m.mu.Lock()
	m.base = ctx
	m.mu.Unlock()
}

// Start binds the manager to ctx and starts every loop.
func (m *Manager) Start(ctx context.Context) {
	m.Bind(ctx)
	m.mu.Lock()
	loops := m.orderedLocked()
	m.mu.Unlock()
	for _, loop := range loops {
		loop.Start(ctx)
	}
}

// Stop stops every loop and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	loops := m.orderedLocked()
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(l *Loop) {
			defer wg.Done()
			l.Stop()
		}(loop)
	}
	wg.Wait()
}

// StartLoop starts one loop by name. It reports false when already running.
func (m *Manager) StartLoop(name string) (bool, error) {
	m.mu.Lock()
	loop, ok := m.loops[name]
	base := m.base
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownLoop, name)
	}
	return loop.Start(base), nil
}

// StopLoop stops one loop by name. It reports false when it was not running.
func (m *Manager) StopLoop(name string) (bool, error) {
	m.mu.Lock()
	loop, ok := m.loops[name]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownLoop, name)
	}
	return loop.Stop(), nil
}

// Status returns one snapshot per loop in registration order.
func (m *Manager) Status() []LoopStatus {
	m.mu.Lock()
	loops := m.orderedLocked()
	m.mu.Unlock()
	out := make([]LoopStatus, 0, len(loops))
	for _, loop := range loops {
		out = append(out, loop.Status())
	}
	return out
}

// Names returns the loop names in registration order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) orderedLocked() []*Loop {
	loops := make([]*Loop, 0, len(m.order))
	for _, name := range m.order {
		loops = append(loops, m.loops[name])
	}
	return loops
}
