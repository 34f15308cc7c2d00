package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"allegro-ops/internal/allegro"
)

// Cache key layout: orders:listing:{subject} -> JSON array of normalized orders.
const keyOrderListing = "orders:listing:%s"

// New constructs a Redis client for the listing cache.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// ListingCache keeps the last fetched order listing per subject so a
// polling dashboard does not hammer the marketplace API. Cache problems
// degrade to a miss; they never fail the read path.
type ListingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewListingCache wires a Redis client into a ListingCache.
func NewListingCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ListingCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "listing_cache").Logger(),
	}
}

// Get returns the cached listing for a subject, if fresh.
func (c *ListingCache) Get(ctx context.Context, subject string) ([]allegro.Order, bool) {
	payload, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderListing, subject)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("listing cache read failed")
		}
		return nil, false
	}

	var orders []allegro.Order
	if err := json.Unmarshal(payload, &orders); err != nil {
		c.logger.Debug().Err(err).Msg("listing cache payload unreadable")
		return nil, false
	}
	return orders, true
}

// Put stores a freshly fetched listing.
func (c *ListingCache) Put(ctx context.Context, subject string, orders []allegro.Order) {
	payload, err := json.Marshal(orders)
	if err != nil {
		c.logger.Debug().Err(err).Msg("listing cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyOrderListing, subject), payload, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("listing cache write failed")
	}
}
