// Package cache keeps short-lived computed views in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	// DashboardKey is the Redis key holding the last computed dashboard.
	DashboardKey = "helpdesk:dashboard"
	// DashboardTTL is used when no TTL is configured.
	DashboardTTL = time.Minute
)

// DashboardCache stores the staff dashboard as JSON with a TTL.
type DashboardCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewDashboardCache creates the cache. A non-positive ttl falls back to DashboardTTL.
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = DashboardTTL
	}
	return &DashboardCache{client: client, key: DashboardKey, ttl: ttl}
}

// Load returns the cached dashboard, or nil when nothing is cached.
func (c *DashboardCache) Load(ctx context.Context) (*domain.DashboardStats, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dashboard cache: %w", err)
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A payload from an older layout is treated as a miss.
		_ = c.client.Del(ctx, c.key).Err()
		return nil, nil
	}
	return &stats, nil
}

// Store caches stats until the TTL elapses.
func (c *DashboardCache) Store(ctx context.Context, stats *domain.DashboardStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write dashboard cache: %w", err)
	}
	return nil
}
