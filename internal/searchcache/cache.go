// Package searchcache caches serialized search responses in Redis, with
// singleflight suppression so concurrent identical queries compute once.
// The whole cache is invalidated when a document is ingested.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	pkgredis "github.com/docsearch-labs/document-search-platform/pkg/redis"
	"github.com/docsearch-labs/document-search-platform/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Cache wraps the Redis client with hit/miss accounting. A circuit breaker
// guards every Redis call: when Redis misbehaves repeatedly, lookups degrade
// to computed misses instead of hammering a dead backend.
type Cache struct {
	client  *pkgredis.Client
	breaker *resilience.Breaker
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a Cache with the given entry TTL.
func New(client *pkgredis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		breaker: resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
		}),
		ttl:    ttl,
		logger: slog.Default().With("component", "search-cache"),
	}
}

// GetOrCompute returns the cached payload for (kind, query), or runs
// compute, caches its JSON encoding, and returns it. The boolean reports a
// cache hit.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	kind, query string,
	compute func() (any, error),
) (json.RawMessage, bool, error) {
	key := c.buildKey(kind, query)
	if payload, ok := c.get(ctx, key); ok {
		return payload, true, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if payload, ok := c.get(ctx, key); ok {
			return payload, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding cached result: %w", err)
		}
		setErr := c.breaker.Execute(func() error {
			return c.client.Set(ctx, key, payload, c.ttl)
		})
		if setErr != nil && !errors.Is(setErr, resilience.ErrBreakerOpen) {
			c.logger.Error("cache set failed", "key", key, "error", setErr)
		}
		return json.RawMessage(payload), nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(json.RawMessage), false, nil
}

// Invalidate removes every cached search response. An open breaker makes
// this a no-op; the entries expire via TTL anyway.
func (c *Cache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var flushErr error
		deleted, flushErr = c.client.FlushByPattern(ctx, keyPrefix+"*")
		return flushErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrBreakerOpen) {
			c.logger.Warn("skipping cache invalidation, breaker open")
			return nil
		}
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Debug("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(ctx context.Context, key string) (json.RawMessage, bool) {
	var payload string
	found := false
	err := c.breaker.Execute(func() error {
		data, getErr := c.client.Get(ctx, key)
		if getErr != nil {
			// A key miss is a normal outcome, not a backend failure.
			if pkgredis.IsNilError(getErr) {
				return nil
			}
			return getErr
		}
		payload = data
		found = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrBreakerOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return json.RawMessage(payload), true
}

func (c *Cache) buildKey(kind, query string) string {
	hash := sha256.Sum256([]byte(kind + "|" + query))
	return fmt.Sprintf("%s%s:%x", keyPrefix, kind, hash[:16])
}
