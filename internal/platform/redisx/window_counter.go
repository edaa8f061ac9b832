package redisx

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key in fixed windows (INCR + EXPIRE on first hit).
type WindowCounter struct {
	rdb    *goredis.Client
	prefix string
}

func NewWindowCounter(rdb *goredis.Client, prefix string) *WindowCounter {
	if prefix == "" {
		prefix = "rate_limit:"
	}
	return &WindowCounter{rdb: rdb, prefix: prefix}
}

// Hit increments key and returns the count in the current window and the time
// left until it resets.
func (w *WindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	full := w.prefix + key
	count, err := w.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := w.rdb.Expire(ctx, full, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}
	ttl, err := w.rdb.TTL(ctx, full).Result()
	if err != nil || ttl < 0 {
		// a key left without expiry would block forever
		_ = w.rdb.Expire(ctx, full, window).Err()
		ttl = window
	}
	return count, ttl, nil
}
