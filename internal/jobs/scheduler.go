package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/craftfolio/engine/internal/logger"
)

// Recurring is a producer that enqueues one task on a fixed interval.
type Recurring struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler feeds recurring maintenance work into a Queue. Each producer
// ticks independently; a tick that fires while its previous task is still
// queued simply enqueues another one, the queue's chunking bounds the
// concurrency either way.
type Scheduler struct {
	log   *logger.Logger
	queue *Queue
	jobs  []Recurring

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped sync.WaitGroup
}

func NewScheduler(baseLog *logger.Logger, queue *Queue, jobs []Recurring) *Scheduler {
	return &Scheduler{
		log:   baseLog.With("component", "Scheduler"),
		queue: queue,
		jobs:  jobs,
	}
}

// Start launches one ticker goroutine per recurring job. Calling Start on
// a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		job := job
		s.stopped.Add(1)
		go s.tick(ctx, job)
	}
	s.log.Info("scheduler started", "jobs", len(s.jobs))
}

func (s *Scheduler) tick(ctx context.Context, job Recurring) {
	defer s.stopped.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.queue.Enqueue(Task{Name: job.Name, Run: job.Run}) {
				return
			}
		}
	}
}

// Stop halts the tickers and waits for them to exit. Already-enqueued
// tasks keep draining; Stop does not touch the queue.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.stopped.Wait()
	s.log.Info("scheduler stopped")
}
