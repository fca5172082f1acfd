package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caresync/healthcare-backend/internal/booking"
)

var ErrLockNotAcquired = errors.New("provider lock not acquired")

const lockRetryInterval = 25 * time.Millisecond

// providerLocker guards a provider's conflict-check-then-insert section with
// a per-provider Redis key, so concurrent bookings for the same provider are
// serialized across service instances. Acquisition polls until the caller's
// context or the wait budget expires.
type providerLocker struct {
	client  *redis.Client
	ttl     time.Duration
	maxWait time.Duration
}

// NewProviderLocker returns a booking.Locker backed by Redis. ttl bounds how
// long a crashed holder can keep the section closed; maxWait bounds how long
// a contender waits before giving up with ErrLockNotAcquired.
func NewProviderLocker(client *redis.Client, ttl, maxWait time.Duration) booking.Locker {
	return &providerLocker{
		client:  client,
		ttl:     ttl,
		maxWait: maxWait,
	}
}

func (l *providerLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:provider:%s", providerID.String())
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	sectionCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(sectionCtx)
}

func (l *providerLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire provider lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// Release only deletes the key when the token still matches, so an expired
// lock reacquired by another holder is never removed from under them.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *providerLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release provider lock: %w", err)
	}
	return nil
}
