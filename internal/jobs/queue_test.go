package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/craftfolio/engine/internal/logger"
)

func waitForDrain(t *testing.T, q *Queue, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		processed, _, backlog := q.Stats()
		if processed >= want && backlog == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	processed, failed, backlog := q.Stats()
	t.Fatalf("queue did not settle: processed=%d failed=%d backlog=%d want=%d", processed, failed, backlog, want)
}

func TestQueue_ExecutesEveryTaskExactlyOnce(t *testing.T) {
	q := NewQueue(logger.NewNop(), 10, nil)
	defer q.Close()

	const n = 53
	var runs [n]int32
	for i := 0; i < n; i++ {
		i := i
		if !q.Enqueue(Task{Name: "count", Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs[i], 1)
			return nil
		}}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	waitForDrain(t, q, n)
	for i, r := range runs {
		if r != 1 {
			t.Fatalf("task %d ran %d times, want exactly once", i, r)
		}
	}
}

func TestQueue_ConcurrencyBoundedByChunkSize(t *testing.T) {
	const chunk = 4
	q := NewQueue(logger.NewNop(), chunk, nil)
	defer q.Close()

	var inFlight, peak int32
	for i := 0; i < 20; i++ {
		q.Enqueue(Task{Name: "probe", Run: func(ctx context.Context) error {
			now := atomic.AddInt32(&inFlight, 1)
			for {
				prev := atomic.LoadInt32(&peak)
				if now <= prev || atomic.CompareAndSwapInt32(&peak, prev, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}})
	}

	waitForDrain(t, q, 20)
	if got := atomic.LoadInt32(&peak); got > chunk {
		t.Fatalf("peak concurrency %d exceeded chunk size %d", got, chunk)
	}
}

func TestQueue_ReArmsAfterEmptying(t *testing.T) {
	q := NewQueue(logger.NewNop(), 10, nil)
	defer q.Close()

	q.Enqueue(Task{Name: "first", Run: func(ctx context.Context) error { return nil }})
	waitForDrain(t, q, 1)

	q.Enqueue(Task{Name: "second", Run: func(ctx context.Context) error { return nil }})
	waitForDrain(t, q, 2)
}

func TestQueue_FailuresAndPanicsAreContained(t *testing.T) {
	var mu sync.Mutex
	var results []TaskResult
	q := NewQueue(logger.NewNop(), 10, func(r TaskResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})
	defer q.Close()

	q.Enqueue(Task{Name: "fails", Run: func(ctx context.Context) error { return errors.New("boom") }})
	q.Enqueue(Task{Name: "panics", Run: func(ctx context.Context) error { panic("bad") }})
	q.Enqueue(Task{Name: "succeeds", Run: func(ctx context.Context) error { return nil }})

	waitForDrain(t, q, 3)
	processed, failed, _ := q.Stats()
	if processed != 3 {
		t.Fatalf("processed = %d, want 3", processed)
	}
	if failed != 2 {
		t.Fatalf("failed = %d, want 2", failed)
	}

	mu.Lock()
	defer mu.Unlock()
	byName := map[string]error{}
	for _, r := range results {
		byName[r.Name] = r.Err
	}
	if byName["fails"] == nil || byName["panics"] == nil {
		t.Fatalf("failing and panicking tasks must report errors: %v", byName)
	}
	var panicErr *PanicError
	if !errors.As(byName["panics"], &panicErr) {
		t.Fatalf("panic should surface as PanicError, got %v", byName["panics"])
	}
	if byName["succeeds"] != nil {
		t.Fatalf("successful task reported error %v", byName["succeeds"])
	}
}

func TestQueue_RejectsAfterClose(t *testing.T) {
	q := NewQueue(logger.NewNop(), 10, nil)
	q.Close()
	if q.Enqueue(Task{Name: "late", Run: func(ctx context.Context) error { return nil }}) {
		t.Fatalf("closed queue must reject enqueues")
	}
}

func TestScheduler_EnqueuesOnInterval(t *testing.T) {
	q := NewQueue(logger.NewNop(), 10, nil)
	defer q.Close()

	var ticks int32
	s := NewScheduler(logger.NewNop(), q, []Recurring{
		{Name: "tick", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			atomic.AddInt32(&ticks, 1)
			return nil
		}},
	})
	s.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	waitForDrain(t, q, 1)
	if atomic.LoadInt32(&ticks) == 0 {
		t.Fatalf("recurring job never ran")
	}

	// Stop is idempotent.
	s.Stop()
}
