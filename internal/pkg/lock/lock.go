package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "afs:index_lock:"

// Service hands out per-shop indexing locks so only one bulk reindex
// runs per tenant at a time. Locks carry a TTL so a crashed run cannot
// wedge a shop forever.
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService creates a lock service. ttl <= 0 defaults to 30 minutes.
func NewService(client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{client: client, ttl: ttl}
}

func key(shop string) string {
	return keyPrefix + shop
}

// Acquire takes the shop's indexing lock. Returns false when another
// holder already has it.
func (s *Service) Acquire(ctx context.Context, shop string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(shop), time.Now().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", shop, err)
	}
	return ok, nil
}

// Release drops the shop's indexing lock. Releasing an unheld lock is
// a no-op.
func (s *Service) Release(ctx context.Context, shop string) error {
	if err := s.client.Del(ctx, key(shop)).Err(); err != nil {
		return fmt.Errorf("failed to release lock for %s: %w", shop, err)
	}
	return nil
}
