package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Task is one periodic unit of work: a collector, the aggregator or the
// resolver. Tasks only touch the shared store, never each other.
type Task interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Clock abstracts time so tests can drive the scheduler deterministically.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// TaskStatus is the observable state of one registered task.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Paused    bool          `json:"paused"`
	LastRunAt time.Time     `json:"last_run_at"`
	LastError string        `json:"last_error,omitempty"`
}

type taskState struct {
	task      Task
	paused    bool
	lastRunAt time.Time
	lastErr   error
}

// Scheduler runs independent periodic tasks, each on its own ticker and
// goroutine, with per-task pause/resume and last-run tracking. There is no
// cross-task ordering: a slow task only delays its own next observation.
type Scheduler struct {
	clock Clock

	mu    sync.Mutex
	tasks map[string]*taskState
	order []string

	wg sync.WaitGroup
}

// New creates a scheduler on the real clock.
func New() *Scheduler {
	return NewWithClock(realClock{})
}

// NewWithClock creates a scheduler with an injected clock, used by tests.
func NewWithClock(clock Clock) *Scheduler {
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]*taskState),
	}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.Name()] = &taskState{task: task}
	s.order = append(s.order, task.Name())
}

// Start launches every registered task and blocks until the context is
// cancelled and all tasks have wound down. Each task runs once immediately,
// then on its interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, name := range names {
		s.wg.Add(1)
		go s.runTask(ctx, name)
	}

	s.wg.Wait()
	logger.Info("Scheduler stopped")
}

func (s *Scheduler) runTask(ctx context.Context, name string) {
	defer s.wg.Done()

	s.mu.Lock()
	state := s.tasks[name]
	s.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"task":     name,
		"interval": state.task.Interval().String(),
	}).Info("Task scheduled")

	ticker := s.clock.NewTicker(state.task.Interval())
	defer ticker.Stop()

	s.executeOnce(ctx, name)

	for {
		select {
		case <-ctx.Done():
			logger.WithField("task", name).Info("Task stopped")
			return
		case <-ticker.C():
			s.executeOnce(ctx, name)
		}
	}
}

func (s *Scheduler) executeOnce(ctx context.Context, name string) {
	s.mu.Lock()
	state := s.tasks[name]
	if state.paused {
		s.mu.Unlock()
		return
	}
	task := state.task
	s.mu.Unlock()

	err := s.safeRun(ctx, task)

	s.mu.Lock()
	state.lastRunAt = s.clock.Now()
	state.lastErr = err
	s.mu.Unlock()
}

// safeRun shields the scheduler from a panicking task: the tick is recorded
// as failed and the next tick still fires.
func (s *Scheduler) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %+v", r)
			logger.WithField("task", task.Name()).
				WithError(err).
				Error("Task panicked")
		}
	}()

	return task.Run(ctx)
}

// Pause stops future runs of one task. Idempotent.
func (s *Scheduler) Pause(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[name]
	if !ok {
		return false
	}
	state.paused = true
	return true
}

// Resume re-enables a paused task. Idempotent.
func (s *Scheduler) Resume(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[name]
	if !ok {
		return false
	}
	state.paused = false
	return true
}

// Status reports every task in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		state := s.tasks[name]
		status := TaskStatus{
			Name:      name,
			Interval:  state.task.Interval(),
			Paused:    state.paused,
			LastRunAt: state.lastRunAt,
		}
		if state.lastErr != nil {
			status.LastError = state.lastErr.Error()
		}
		out = append(out, status)
	}
	return out
}
