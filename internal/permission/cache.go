package permission

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/frahmantamala/access-control/internal/core/metrics"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	permissions []string
	expiresAt   time.Time
}

// ResolutionCache maps role names to their resolved permission names for a
// fixed TTL. Expired entries are replaced lazily on the next read.
type ResolutionCache struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
	// generation is bumped per role on Invalidate and epoch on InvalidateAll,
	// so a compute that started earlier never stores its result.
	generation map[string]uint64
	epoch      uint64

	group singleflight.Group
}

type CacheOption func(*ResolutionCache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *ResolutionCache) {
		c.now = now
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *ResolutionCache) {
		c.metrics = m
	}
}

func NewResolutionCache(ttl time.Duration, opts ...CacheOption) *ResolutionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &ResolutionCache{
		ttl:        ttl,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
		generation: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the unexpired entry for roleName, if any.
func (c *ResolutionCache) Get(roleName string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[roleName]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, roleName)
		return nil, false
	}
	c.metrics.ObserveCacheLookup("hit")
	return clone(entry.permissions), true
}

// ComputeFunc loads the permissions of a role. It reports whether the result
// may be stored; unknown and universal roles are answered but never cached.
type ComputeFunc func(ctx context.Context) (permissions []string, cacheable bool, err error)

// Resolve returns the cached permissions for roleName, calling compute on a
// miss. Concurrent misses for the same role share one compute call, which
// runs detached from any single caller's cancellation; each caller still
// returns as soon as its own ctx is done. A result is stored only if no
// invalidation of roleName happened since the miss was observed. Errors from
// compute are returned as-is and nothing is stored.
func (c *ResolutionCache) Resolve(ctx context.Context, roleName string, compute ComputeFunc) ([]string, error) {
	if cached, ok := c.Get(roleName); ok {
		return cached, nil
	}

	c.mu.Lock()
	gen, epoch := c.generation[roleName], c.epoch
	c.mu.Unlock()

	c.metrics.ObserveCacheLookup("miss")

	shared := context.WithoutCancel(ctx)
	key := roleName + "#" + strconv.FormatUint(epoch, 10) + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		permissions, cacheable, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if permissions == nil {
			permissions = []string{}
		}
		if !cacheable {
			return permissions, nil
		}

		c.mu.Lock()
		if c.generation[roleName] == gen && c.epoch == epoch {
			c.entries[roleName] = cacheEntry{
				permissions: permissions,
				expiresAt:   c.now().Add(c.ttl),
			}
		}
		c.mu.Unlock()

		return permissions, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]string)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ResolutionCache) Invalidate(roleName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, roleName)
	c.generation[roleName]++
}

func (c *ResolutionCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.epoch++
}

// Len counts stored entries, expired ones included.
func (c *ResolutionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
