package pipeline

import (
	"sort"
	"strings"
	"sync"
)

type CacheEntry struct {
	Codes      []string
	Load       LoadResult
	Normalized NormalizeResult
}

// Cache memoizes load+normalize per outlet set. A hit never touches the source files;
// invalidation removes single entries only.
type Cache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: map[string]CacheEntry{}}
}

// CacheKey is order- and duplicate-insensitive.
func CacheKey(codes []string) string {
	return strings.Join(normalizeCodes(codes), ",")
}

func normalizeCodes(codes []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (c *Cache) Get(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) Put(key string, entry CacheEntry) {
	if entry.Codes == nil && key != "" {
		entry.Codes = strings.Split(key, ",")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// GetOrLoad returns the cached entry for the outlet set or builds it with load.
// The bool reports a hit.
func (c *Cache) GetOrLoad(codes []string, load func(codes []string) CacheEntry) (CacheEntry, bool) {
	norm := normalizeCodes(codes)
	key := strings.Join(norm, ",")
	if e, ok := c.Get(key); ok {
		return e, true
	}
	e := load(norm)
	e.Codes = norm
	c.Put(key, e)
	return e, false
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateOutlet drops every entry whose outlet set includes code and returns how
// many were dropped.
func (c *Cache) InvalidateOutlet(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for key, e := range c.entries {
		for _, member := range e.Codes {
			if member == code {
				delete(c.entries, key)
				dropped++
				break
			}
		}
	}
	return dropped
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
