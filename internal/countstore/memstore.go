package countstore

import (
	"context"
	"sync"
	"time"
)

// MemCountStore is the in-process fallback used when redis is not
// configured, and in tests. Buckets are never evicted; acceptable for the
// dev lifetime of a single process.
type MemCountStore struct {
	mu     sync.Mutex
	counts map[string]int
	nowFn  func() time.Time
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts: map[string]int{},
		nowFn:  time.Now,
	}
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, period := range allPeriods {
		s.counts[periodBucket(name, val, period, now)]++
	}
	return nil
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[periodBucket(name, val, period, s.nowFn())], nil
}
