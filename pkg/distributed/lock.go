// Package distributed holds the cross-instance coordination primitives used
// when several relay instances share one Redis. The lock elects which
// instance runs singleton work such as the command expiry sweeper.
package distributed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the key no longer carries this
// instance's token, meaning the lease expired and someone else took over.
var ErrNotHeld = errors.New("lock not held by this instance")

// releaseScript deletes the key only when it still carries our token, so an
// instance whose lease lapsed cannot release its successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// DistributedLock is a single-holder lease on a Redis key. The holder renews
// the lease in the background; if the instance dies, the key expires and
// another instance can claim the role.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	done   chan struct{}
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
		ttl:    ttl,
		done:   make(chan struct{}),
	}
}

// TryLock claims the lease if nobody holds it. On success a renewal
// goroutine keeps the lease alive until Unlock or ctx cancellation.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim lock %s: %w", l.key, err)
	}
	if ok {
		go l.renew(ctx)
	}
	return ok, nil
}

// Lock blocks until the lease is claimed or the context ends.
func (l *DistributedLock) Lock(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases the lease and stops renewal.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	close(l.done)

	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

// Held reports whether this instance's token is still on the key.
func (l *DistributedLock) Held(ctx context.Context) (bool, error) {
	token, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token == l.token, nil
}

// renew extends the lease at half-TTL intervals. It exits as soon as the key
// stops carrying our token; the Lock/TryLock caller notices via Held or the
// next Unlock.
func (l *DistributedLock) renew(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			held, err := l.Held(ctx)
			if err != nil || !held {
				return
			}
			l.client.Expire(ctx, l.key, l.ttl)
		case <-l.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
