package session

import (
	"context"
	"sync"

	"github.com/newtron-network/newtcli/pkg/util"
)

// Cache stores show-command responses for one device.
type Cache interface {
	// Get returns the cached response for key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a response.
	Set(ctx context.Context, key, value string) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get returns the cached response for key.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Set stores a response.
func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return nil
}

// Len returns the number of cached responses.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedChannel serves cacheable sends from a Cache. A non-cacheable send
// may change what any show command prints, so it clears the cache, whether
// or not it succeeded.
type CachedChannel struct {
	inner    Channel
	cache    Cache
	device   string
	patterns *ErrorPatternSet
}

// NewCachedChannel wraps inner with cache. device only labels log entries.
func NewCachedChannel(device string, inner Channel, cache Cache) *CachedChannel {
	return &CachedChannel{inner: inner, cache: cache, device: device}
}

// WithErrorPatterns keeps responses matching patterns out of the cache, so
// a rejected show is asked again instead of replayed.
func (c *CachedChannel) WithErrorPatterns(patterns *ErrorPatternSet) *CachedChannel {
	c.patterns = patterns
	return c
}

// Send implements Channel.
func (c *CachedChannel) Send(ctx context.Context, lines []string, cacheable bool) (string, error) {
	if !cacheable {
		out, err := c.inner.Send(ctx, lines, false)
		if cerr := c.cache.Clear(ctx); cerr != nil {
			util.WithDevice(c.device).Warnf("Clearing response cache: %v", cerr)
		}
		return out, err
	}

	key := cacheKey(lines)
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		util.WithDevice(c.device).Warnf("Reading response cache: %v", err)
	} else if ok {
		util.WithDevice(c.device).Debugf("Cache hit for %q", key)
		return v, nil
	}

	out, err := c.inner.Send(ctx, lines, true)
	if err != nil {
		return out, err
	}
	if pat, ok := c.patterns.Match(out); ok {
		util.WithDevice(c.device).Debugf("Not caching %q: response matched %q", key, pat)
		return out, nil
	}
	if err := c.cache.Set(ctx, key, out); err != nil {
		util.WithDevice(c.device).Warnf("Writing response cache: %v", err)
	}
	return out, nil
}
