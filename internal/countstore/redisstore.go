package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftfolio/engine/internal/logger"
)

var periodTTL = map[string]time.Duration{
	PeriodHour: 2 * time.Hour,
	PeriodDay:  48 * time.Hour,
}

// RedisCountStore keeps counters in redis so rate signals survive process
// restarts and are shared across replicas.
type RedisCountStore struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewRedisCountStore(rdb *redis.Client, baseLog *logger.Logger) *RedisCountStore {
	return &RedisCountStore{
		rdb: rdb,
		log: baseLog.With("component", "RedisCountStore"),
	}
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	now := time.Now()
	pipe := s.rdb.Pipeline()
	for _, period := range allPeriods {
		key := periodBucket(name, val, period, now)
		pipe.Incr(ctx, key)
		if ttl, ok := periodTTL[period]; ok {
			pipe.Expire(ctx, key, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	n, err := s.rdb.Get(ctx, periodBucket(name, val, period, time.Now())).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisCountStore) Close() error {
	return s.rdb.Close()
}
