// Package cache holds the Redis backed helpers: a read-through cache for
// pending collection totals and a lock that keeps scheduled jobs from
// running on two replicas at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "farm_credit:pending:"

// Cmdable is the subset of the go-redis client used here
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// PendingCache decorates a CollectionsSource with a short lived Redis copy of
// each farmer's pending total. Redis failures fall through to the source.
type PendingCache struct {
	source credit.CollectionsSource
	client Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewPendingCache(logger *slog.Logger, source credit.CollectionsSource, client Cmdable, ttl time.Duration) *PendingCache {
	return &PendingCache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func pendingKey(farmerID uuid.UUID) string {
	return pendingKeyPrefix + farmerID.String()
}

func (c *PendingCache) SumPendingAmount(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	if c.ttl <= 0 {
		return c.source.SumPendingAmount(ctx, farmerID)
	}

	key := pendingKey(farmerID)
	cached, err := c.client.Get(ctx, key).Int64()
	switch {
	case err == nil:
		metrics.PendingCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	case errors.Is(err, redis.Nil):
		metrics.PendingCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.PendingCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Pending cache read failed", "farmer_id", farmerID.String(), "error", err)
	}

	total, err := c.source.SumPendingAmount(ctx, farmerID)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, total, c.ttl).Err(); err != nil {
		c.logger.Warn("Pending cache write failed", "farmer_id", farmerID.String(), "error", err)
	}
	return total, nil
}

// Invalidate drops the cached total so the next read goes to the source.
// Called when a collection event for the farmer arrives.
func (c *PendingCache) Invalidate(ctx context.Context, farmerID uuid.UUID) error {
	if c.ttl <= 0 {
		return nil
	}
	if err := c.client.Del(ctx, pendingKey(farmerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate pending cache: %w", err)
	}
	return nil
}
