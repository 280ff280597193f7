package queue

import (
	"context"
	"sync"
	"time"

	"DemandCast/pkg/logger"
)

// Task is run by a Scheduler on every tick.
type Task func(ctx context.Context) error

// EnqueueTask returns a Task that enqueues msgType with payload on q.
func EnqueueTask(q QueueService, msgType string, payload interface{}) Task {
	return func(ctx context.Context) error {
		_, err := q.Enqueue(ctx, msgType, payload)
		return err
	}
}

// Scheduler runs a Task at a fixed interval until stopped.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. It does nothing until Start.
func NewScheduler(lgr *logger.Logger, name string, interval time.Duration, task Task) *Scheduler {
	return &Scheduler{name: name, interval: interval, task: task, logger: lgr}
}

// Start launches the ticker. A non-positive interval disables the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.interval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	s.logger.Info("scheduler started",
		logger.String("task", s.name),
		logger.Duration("interval", s.interval))
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("scheduled task failed", logger.String("task", s.name), logger.Error(err))
			}
		}
	}
}

// Stop cancels the ticker and waits for a running task to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
