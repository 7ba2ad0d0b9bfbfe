package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ttlCache holds values until they expire
type ttlCache[V any] struct {
	data  map[string]cacheEntry[V]
	ttl   time.Duration
	mutex sync.RWMutex
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		data: make(map[string]cacheEntry[V]),
		ttl:  ttl,
	}
}

func (c *ttlCache[V]) get(key string, now time.Time) (V, bool) {
	c.mutex.RLock()
	entry, ok := c.data[key]
	c.mutex.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V, now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.data[key] = cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// CachedGateway remembers historical metrics and trend analysis per entity
// and window. Every other call goes straight to the wrapped gateway.
// Errors are never cached.
//
// Cached HistoricalMetrics maps and *TrendAnalysis values are shared by every
// caller that hits the same entry. Callers must treat them as read-only; copy
// before modifying.
type CachedGateway struct {
	Gateway
	historical *ttlCache[HistoricalMetrics]
	trends     *ttlCache[*TrendAnalysis]
	now        func() time.Time
}

// NewCachedGateway wraps g with a cache of the given TTL
func NewCachedGateway(g Gateway, ttl time.Duration) *CachedGateway {
	return &CachedGateway{
		Gateway:    g,
		historical: newTTLCache[HistoricalMetrics](ttl),
		trends:     newTTLCache[*TrendAnalysis](ttl),
		now:        time.Now,
	}
}

func windowKey(entityID string, days int) string {
	return fmt.Sprintf("%s|%d", entityID, days)
}

// GetHistoricalMetrics serves from cache when a fresh entry exists
func (g *CachedGateway) GetHistoricalMetrics(ctx context.Context, entityID string, days int) (HistoricalMetrics, error) {
	key := windowKey(entityID, days)
	if v, ok := g.historical.get(key, g.now()); ok {
		return v, nil
	}
	v, err := g.Gateway.GetHistoricalMetrics(ctx, entityID, days)
	if err != nil {
		return nil, err
	}
	g.historical.set(key, v, g.now())
	return v, nil
}

// GetTrendAnalysis serves from cache when a fresh entry exists
func (g *CachedGateway) GetTrendAnalysis(ctx context.Context, entityID string, days int) (*TrendAnalysis, error) {
	key := windowKey(entityID, days)
	if v, ok := g.trends.get(key, g.now()); ok {
		return v, nil
	}
	v, err := g.Gateway.GetTrendAnalysis(ctx, entityID, days)
	if err != nil {
		return nil, err
	}
	g.trends.set(key, v, g.now())
	return v, nil
}
