package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"restaurant-backend/internal/logging"
)

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
	defaultWait  = 5 * time.Second
)

// RedisLocker shares locks across every instance pointed at the same Redis.
type RedisLocker struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	logger logrus.FieldLogger
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string, logger logrus.FieldLogger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		prefix: prefix,
		ttl:    defaultTTL,
		wait:   defaultWait,
		logger: logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("%s:%s", l.prefix, key)

	// retried until wait elapses
	obtainCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	lk, err := l.client.Obtain(obtainCtx, lockKey, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(defaultRetry),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		logging.LogError(l.logger, "lock", "Lock", "could not obtain lock", lockKey, err)
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		logging.LogError(l.logger, "lock", "Lock", "error obtaining lock", lockKey, err)
		return nil, err
	}

	return func() {
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logging.LogError(l.logger, "lock", "Release", "release failed", lockKey, err)
		}
	}, nil
}
