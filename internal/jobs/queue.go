package jobs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/logger"
)

// Task is one queued unit of work. Tasks receive the queue's background
// context, not the enqueuer's: enqueue is fire-and-forget.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskResult is reported to the optional observer after each task settles.
type TaskResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Queue is an in-process FIFO task queue. Tasks drain in fixed-size
// chunks: every task in a chunk runs concurrently and the drain loop
// waits for the whole chunk before pulling the next one, so at most
// chunkSize tasks run at any instant. The loop parks when the queue
// empties and re-arms on the next Enqueue. Nothing is persisted;
// unprocessed tasks are lost on shutdown.
type Queue struct {
	log       *logger.Logger
	chunkSize int
	onResult  func(TaskResult)

	mu      sync.Mutex
	pending []Task
	running bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	drains sync.WaitGroup

	processed int64
	failed    int64
}

func NewQueue(baseLog *logger.Logger, chunkSize int, onResult func(TaskResult)) *Queue {
	if chunkSize <= 0 {
		chunkSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		log:       baseLog.With("component", "JobQueue"),
		chunkSize: chunkSize,
		onResult:  onResult,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enqueue appends a task and starts a drain loop if none is running.
// Returns false after Close.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, task)
	if !q.running {
		q.running = true
		q.drains.Add(1)
		go q.drain()
	}
	q.mu.Unlock()
	return true
}

func (q *Queue) drain() {
	defer q.drains.Done()
	for {
		chunk := q.takeChunk()
		if chunk == nil {
			return
		}
		g, ctx := errgroup.WithContext(q.ctx)
		for _, task := range chunk {
			task := task
			g.Go(func() error {
				start := time.Now()
				err := runSettled(ctx, task)
				q.settle(TaskResult{Name: task.Name, Err: err, Duration: time.Since(start)})
				// chunk members settle independently
				return nil
			})
		}
		_ = g.Wait()
	}
}

// takeChunk pops up to chunkSize tasks, or clears the running flag and
// returns nil when the queue is empty. The flag flip and the emptiness
// check happen under the same lock so a concurrent Enqueue either sees
// running=true or starts a fresh drain.
func (q *Queue) takeChunk() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 || q.closed {
		q.running = false
		return nil
	}
	n := q.chunkSize
	if n > len(q.pending) {
		n = len(q.pending)
	}
	chunk := make([]Task, n)
	copy(chunk, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	return chunk
}

func (q *Queue) settle(result TaskResult) {
	q.mu.Lock()
	q.processed++
	if result.Err != nil {
		q.failed++
	}
	q.mu.Unlock()
	if result.Err != nil {
		q.log.Warn("task failed", "task", result.Name, "duration", result.Duration, "error", result.Err)
	}
	if q.onResult != nil {
		q.onResult(result)
	}
}

// Stats reports lifetime settled counts and the current backlog.
func (q *Queue) Stats() (processed, failed int64, backlog int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed, q.failed, len(q.pending)
}

// Close rejects further enqueues, cancels in-flight task contexts and
// waits for the active drain loop to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.mu.Unlock()
	q.cancel()
	q.drains.Wait()
}

func runSettled(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: task.Name, Value: r}
		}
	}()
	return task.Run(ctx)
}

type PanicError struct {
	Task  string
	Value any
}

func (e *PanicError) Error() string {
	return "task " + e.Task + " panicked"
}
