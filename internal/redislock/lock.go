package redislock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lock is a SetNX owner-lock used as the fast-path guard against a terminal
// double-tapping open/settle. It is a latency optimization only: the
// store-side conditional write is the correctness mechanism, so every caller
// must tolerate Acquire succeeding on a row another process already settled.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Lock {
	return &Lock{Client: client, TTL: ttl}
}

// Acquire takes the lock for owner, returning false when someone else holds
// it. A nil client disables the fast path entirely.
func (l *Lock) Acquire(ctx context.Context, key, owner string) (bool, error) {
	if l == nil || l.Client == nil {
		return true, nil
	}
	return l.Client.SetNX(ctx, key, owner, l.TTL).Result()
}

// Release drops the lock if owner still holds it.
func (l *Lock) Release(ctx context.Context, key, owner string) error {
	if l == nil || l.Client == nil {
		return nil
	}
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err = l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
