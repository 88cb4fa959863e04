package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/agora/pkg/observability"
)

// CachedResolver memoises region postcodes by region id in an in-process LRU
// backed by an optional Redis tier. Entries live until their TTL expires or
// Invalidate is called for the region.
type CachedResolver struct {
	source  *GeofenceResolver
	local   *lru.LRU[string, []string]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics

	// generation counts invalidations per region. A store read only fills
	// the cache if no invalidation happened while it was in flight.
	mu         sync.Mutex
	generation map[string]uint64
}

// CacheConfig configures a CachedResolver
type CacheConfig struct {
	Entries int
	TTL     time.Duration
}

// NewCachedResolver wraps source. client and metrics may be nil.
func NewCachedResolver(source *GeofenceResolver, client *redis.Client, cfg CacheConfig, metrics *observability.Metrics) *CachedResolver {
	if cfg.Entries <= 0 {
		cfg.Entries = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &CachedResolver{
		source:     source,
		local:      lru.NewLRU[string, []string](cfg.Entries, nil, cfg.TTL),
		redis:      client,
		ttl:        cfg.TTL,
		metrics:    metrics,
		generation: make(map[string]uint64),
	}
}

func regionKey(regionID string) string {
	return fmt.Sprintf("agora:region:%s:postcodes", regionID)
}

// PostcodesFor behaves like GeofenceResolver.PostcodesFor but consults the
// memory tier, then Redis, then the store for whatever is left.
func (c *CachedResolver) PostcodesFor(ctx context.Context, regionIDs []string) ([]string, error) {
	byRegion := make(map[string][]string, len(regionIDs))
	var misses []string

	for _, id := range regionIDs {
		if _, done := byRegion[id]; done {
			continue
		}
		if pcs, ok := c.local.Get(id); ok {
			c.hit("memory")
			byRegion[id] = pcs
			continue
		}
		if pcs, ok := c.fromRedis(ctx, id); ok {
			c.hit("redis")
			c.local.Add(id, pcs)
			byRegion[id] = pcs
			continue
		}
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		snapshot := c.generations(misses)
		fetched, err := c.source.fetch(ctx, misses)
		if err != nil {
			return nil, err
		}
		for id, pcs := range fetched {
			byRegion[id] = pcs
			c.fill(ctx, id, pcs, snapshot[id])
		}
	}

	return unionPostcodes(regionIDs, byRegion), nil
}

func (c *CachedResolver) generations(regionIDs []string) map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(regionIDs))
	for _, id := range regionIDs {
		out[id] = c.generation[id]
	}
	return out
}

func (c *CachedResolver) current(regionID string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation[regionID] == gen
}

// fill caches a store read taken at generation gen. If Invalidate ran since,
// the read may predate the update and is dropped. The Redis write is checked
// again afterwards because an Invalidate can land between the check and Set.
func (c *CachedResolver) fill(ctx context.Context, regionID string, postcodes []string, gen uint64) {
	c.mu.Lock()
	if c.generation[regionID] != gen {
		c.mu.Unlock()
		return
	}
	c.local.Add(regionID, postcodes)
	c.mu.Unlock()

	c.toRedis(ctx, regionID, postcodes)
	if !c.current(regionID, gen) && c.redis != nil {
		c.redis.Del(ctx, regionKey(regionID))
	}
}

// Invalidate drops regionID from both tiers and discards any store read of
// it still in flight.
func (c *CachedResolver) Invalidate(ctx context.Context, regionID string) error {
	c.mu.Lock()
	c.generation[regionID]++
	c.local.Remove(regionID)
	c.mu.Unlock()

	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, regionKey(regionID)).Err(); err != nil {
		return fmt.Errorf("invalidate region %s: %w", regionID, err)
	}
	return nil
}

func (c *CachedResolver) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

// Redis trouble degrades to a miss; the store stays the source of truth.
func (c *CachedResolver) fromRedis(ctx context.Context, regionID string) ([]string, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := regionKey(regionID)
	data, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		observability.FromContext(ctx).WithError(err).Warn("region cache read failed")
		return nil, false
	}

	var pcs []string
	if err := json.Unmarshal([]byte(data), &pcs); err != nil {
		c.redis.Del(ctx, key)
		return nil, false
	}
	return pcs, true
}

func (c *CachedResolver) toRedis(ctx context.Context, regionID string, postcodes []string) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(postcodes)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, regionKey(regionID), data, c.ttl).Err(); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("region cache write failed")
	}
}

var _ PostcodeResolver = (*CachedResolver)(nil)
var _ PostcodeResolver = (*GeofenceResolver)(nil)
