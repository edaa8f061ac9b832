package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("redisx: lock held by another owner")

// Only the owner that set the token may delete the key.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker interface {
	// Acquire returns a release func, or ErrLockHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type redisLocker struct {
	rdb    *goredis.Client
	prefix string
}

func NewLocker(rdb *goredis.Client, prefix string) Locker {
	if prefix == "" {
		prefix = "lock:"
	}
	return &redisLocker{rdb: rdb, prefix: prefix}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	full := l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", full, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{full}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("release %s: %w", full, err)
		}
		return nil
	}, nil
}

// LocalLocker is a single-process Locker used when redis is not configured.
type LocalLocker struct {
	held chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(chan struct{}, 1)}
}

func (l *LocalLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, error) {
	select {
	case l.held <- struct{}{}:
		return func(context.Context) error {
			<-l.held
			return nil
		}, nil
	default:
		return nil, ErrLockHeld
	}
}
