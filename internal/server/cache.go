package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/mkovalev-dev/termindex/pkg/config"
	pkgredis "github.com/mkovalev-dev/termindex/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "termindex:q:"

// QueryCache memoises serve-mode query results in Redis. Concurrent misses
// for the same key are collapsed through singleflight so the intersection
// runs once. The loaded index never changes during a serve invocation, so
// entries only expire by TTL.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewQueryCache wraps a Redis client as a query cache.
func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached result for the term set, or runs computeFn
// and caches its result. The second return reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	terms []string,
	computeFn func() (*SearchResult, error),
) (*SearchResult, bool, error) {
	key := c.buildKey(terms)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*SearchResult), false, nil
}

// Stats returns the hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) get(ctx context.Context, key string) (*SearchResult, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// buildKey hashes the sorted distinct term set, so queries that differ only
// in term order or repetition share one cache entry.
func (c *QueryCache) buildKey(terms []string) string {
	distinct := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		distinct = append(distinct, t)
	}
	sort.Strings(distinct)
	hash := sha256.Sum256([]byte(strings.Join(distinct, ",")))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
