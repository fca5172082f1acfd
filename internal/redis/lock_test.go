package redisclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestProviderLockSerializesCriticalSections(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewProviderLocker(client, 5*time.Second, 2*time.Second)
	provider := uuid.New()

	var mu sync.Mutex
	var inside, maxInside int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithProviderLock(context.Background(), provider, func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "at most one goroutine may hold a provider's lock")
}

func TestProviderLockGivesUpAfterMaxWait(t *testing.T) {
	client, mr := newTestRedis(t)
	locker := NewProviderLocker(client, 5*time.Second, 100*time.Millisecond)
	provider := uuid.New()

	// another holder already owns the key
	require.NoError(t, mr.Set(fmt.Sprintf("lock:provider:%s", provider), "other-token"))

	err := locker.WithProviderLock(context.Background(), provider, func(ctx context.Context) error {
		t.Fatal("section must not run without the lock")
		return nil
	})

	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestProviderLockReleasedAfterSection(t *testing.T) {
	client, mr := newTestRedis(t)
	locker := NewProviderLocker(client, 5*time.Second, time.Second)
	provider := uuid.New()

	require.NoError(t, locker.WithProviderLock(context.Background(), provider, func(ctx context.Context) error {
		return nil
	}))

	assert.False(t, mr.Exists(fmt.Sprintf("lock:provider:%s", provider)), "lock key must be deleted on release")

	// and the lock is immediately reacquirable
	assert.NoError(t, locker.WithProviderLock(context.Background(), provider, func(ctx context.Context) error {
		return nil
	}))
}

func TestProviderLockReleaseKeepsForeignToken(t *testing.T) {
	client, mr := newTestRedis(t)
	locker := &providerLocker{client: client, ttl: 5 * time.Second, maxWait: time.Second}
	key := fmt.Sprintf("lock:provider:%s", uuid.New())

	// simulate an expired lock reacquired by someone else
	require.NoError(t, mr.Set(key, "current-holder"))

	require.NoError(t, locker.release(context.Background(), key, "stale-token"))

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "current-holder", got, "release must not delete another holder's lock")
}

func TestProviderLocksAreIndependentPerProvider(t *testing.T) {
	client, mr := newTestRedis(t)
	locker := NewProviderLocker(client, 5*time.Second, 50*time.Millisecond)
	busy := uuid.New()
	free := uuid.New()

	require.NoError(t, mr.Set(fmt.Sprintf("lock:provider:%s", busy), "other-token"))

	// the busy provider blocks, the other one does not
	err := locker.WithProviderLock(context.Background(), free, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, ok, "unknown keys miss")

	id := uuid.New()
	require.NoError(t, store.Remember(ctx, "key-1", id))

	got, ok, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestIdempotencyStoreKeepsFirstWriter(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	first := uuid.New()
	require.NoError(t, store.Remember(ctx, "key-1", first))
	require.NoError(t, store.Remember(ctx, "key-1", uuid.New()))

	got, ok, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got, "a raced replay must not overwrite the original mapping")
}

func TestIdempotencyStoreEntriesExpire(t *testing.T) {
	client, mr := newTestRedis(t)
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "key-1", uuid.New()))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, ok, "expired keys book again")
}
