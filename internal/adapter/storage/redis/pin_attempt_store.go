package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PinAttemptStore implements ports.PinAttemptStore using a Redis counter per
// account. The counter carries the lockout TTL, so a lockout ends by key
// expiry with no unlock path to maintain.
type PinAttemptStore struct {
	client *goredis.Client
	prefix string
}

// NewPinAttemptStore creates a new Redis-backed PIN attempt store.
func NewPinAttemptStore(client *goredis.Client) *PinAttemptStore {
	return &PinAttemptStore{
		client: client,
		prefix: "pin_attempts:",
	}
}

// Failures returns the current failure count, zero when no key exists.
func (s *PinAttemptStore) Failures(ctx context.Context, accountID string) (int, error) {
	count, err := s.client.Get(ctx, s.prefix+accountID).Int()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis pin attempts get: %w", err)
	}
	return count, nil
}

// RecordFailure increments the counter and returns the new count. The TTL is
// set only when the increment created the key, so later failures inside the
// window do not extend the lockout.
func (s *PinAttemptStore) RecordFailure(ctx context.Context, accountID string, ttl time.Duration) (int, error) {
	key := s.prefix + accountID
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pin attempts incr: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, ttl)
	}
	return int(count), nil
}

// Reset clears the counter after a successful verification.
func (s *PinAttemptStore) Reset(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, s.prefix+accountID).Err(); err != nil {
		return fmt.Errorf("redis pin attempts del: %w", err)
	}
	return nil
}
