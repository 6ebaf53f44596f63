package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ErrLocked ключ занят другим владельцем дольше, чем мы готовы ждать
var ErrLocked = errors.New("lock is held by another owner")

// Снимаем блокировку, только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis блокировки между несколькими экземплярами сервиса
type Redis struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
	logger     *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client:     client,
		prefix:     "mentoring:lock:",
		ttl:        ttl,
		retryEvery: 25 * time.Millisecond,
		logger:     logger,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	backoff := retry.WithMaxDuration(l.ttl, retry.NewConstant(l.retryEvery))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("redis setnx: %w", err)
		}
		if !ok {
			return retry.RetryableError(ErrLocked)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("Failed to release redis lock", zap.String("key", redisKey), zap.Error(err))
		}
	}, nil
}
