package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ClaimIdempotencyKey atomically claims a checkout idempotency key.
// Returns false when another request already holds the key.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s:%s", ownerID, key), "1", ttl).Result()
}

// ReleaseIdempotencyKey drops a claimed key so a failed checkout can be
// resubmitted.
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s:%s", ownerID, key)).Err()
}

// CacheSummary stores a serialized summary projection under the owner's
// cache slot.
func (c *Client) CacheSummary(ctx context.Context, kind string, ownerID uuid.UUID, summary interface{}, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return c.rdb.Set(ctx, summaryKey(kind, ownerID), data, ttl).Err()
}

// GetSummary loads a cached summary into dest. Returns false on a cache
// miss.
func (c *Client) GetSummary(ctx context.Context, kind string, ownerID uuid.UUID, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, summaryKey(kind, ownerID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return true, nil
}

// InvalidateSummaries drops the owner's cached projections after a
// stock-affecting mutation.
func (c *Client) InvalidateSummaries(ctx context.Context, ownerID uuid.UUID) error {
	return c.rdb.Del(ctx,
		summaryKey("stock", ownerID),
		summaryKey("cart", ownerID),
	).Err()
}

func summaryKey(kind string, ownerID uuid.UUID) string {
	return fmt.Sprintf("summary:%s:%s", kind, ownerID)
}
