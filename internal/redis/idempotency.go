package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyStore maps client-generated booking keys to the appointment
// they produced, so a client retrying after a timeout gets the original
// appointment back instead of a duplicate. Entries expire after ttl; beyond
// that window a replayed key books again.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
	}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("booking:idem:%s", key)
}

func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (uuid.UUID, bool, error) {
	val, err := s.client.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency lookup: corrupt value %q", val)
	}
	return id, true, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, key string, appointmentID uuid.UUID) error {
	// NX keeps the first booking's id if two replays raced past the lookup.
	err := s.client.SetNX(ctx, idempotencyKey(key), appointmentID.String(), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}
