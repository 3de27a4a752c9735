package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"boleta/internal/logger"
)

// Task describes the work currently held by a Supervisor.
type Task struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

// Result is passed to the completion callback of a task.
type Result struct {
	Task     Task
	Err      error
	Duration time.Duration
}

// Supervisor runs at most one background task at a time. Starting a task
// while another one is in flight fails with ErrBusy instead of queueing.
type Supervisor struct {
	mu      sync.Mutex
	current *Task
	wg      sync.WaitGroup
	log     zerolog.Logger
}

func NewSupervisor() *Supervisor {
	return &Supervisor{log: logger.WithComponent("supervisor")}
}

// Start runs fn in the background and returns its task id. callback, when
// not nil, receives the outcome after the slot has been released, so it may
// start the next task.
func (s *Supervisor) Start(ctx context.Context, name string, fn func(ctx context.Context) error, callback func(Result)) (string, error) {
	s.mu.Lock()
	if s.current != nil {
		running := *s.current
		s.mu.Unlock()
		s.log.Warn().
			Str("task", name).
			Str("running", running.Name).
			Msg("Rejected task, another one is in flight")
		return "", fmt.Errorf("%w: %s (%s)", ErrBusy, running.Name, running.ID)
	}
	task := Task{ID: uuid.NewString(), Name: name, StartedAt: time.Now()}
	s.current = &task
	s.wg.Add(1)
	s.mu.Unlock()

	log := logger.WithTask("supervisor", task.ID)
	log.Info().Str("task", name).Msg("Task started")

	go func() {
		defer s.wg.Done()

		err := run(ctx, fn)
		res := Result{Task: task, Err: err, Duration: time.Since(task.StartedAt)}

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()

		if err != nil {
			log.Error().Err(err).Dur("duration", res.Duration).Msg("Task failed")
		} else {
			log.Info().Dur("duration", res.Duration).Msg("Task finished")
		}
		if callback != nil {
			callback(res)
		}
	}()

	return task.ID, nil
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Busy reports whether a task is in flight.
func (s *Supervisor) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Current returns the running task, if any.
func (s *Supervisor) Current() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Task{}, false
	}
	return *s.current, true
}

// Wait blocks until every started task and its callback have returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
