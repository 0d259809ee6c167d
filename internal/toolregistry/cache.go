package toolregistry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 5 * time.Minute
)

// CacheConfig configures the tool result cache behaviour.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the LRU cache.
	MaxSize int
	// TTL is how long a cached result remains valid.
	TTL time.Duration
}

// DefaultCacheConfig returns the standard cache sizing.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: defaultCacheMaxSize, TTL: defaultCacheTTL}
}

type cacheEntry struct {
	content  string
	storedAt time.Time
}

// resultCache memoizes read-only tool results. Mutating tools bypass it and
// purge it on success, so a read after a write always re-executes.
type resultCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
}

func newResultCache(config CacheConfig) *resultCache {
	size := config.MaxSize
	if size <= 0 {
		size = defaultCacheMaxSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		// lru.New only fails on non-positive size, which is guarded above.
		panic(err)
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &resultCache{entries: entries, ttl: ttl}
}

// cacheKey canonicalizes args so that semantically equal calls share an
// entry regardless of map iteration order.
func cacheKey(tool string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(tool)
	for _, k := range keys {
		encoded, err := json.Marshal(args[k])
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", args[k]))
		}
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.Write(encoded)
	}
	return sb.String()
}

func (c *resultCache) get(tool string, args map[string]any) (string, bool) {
	entry, ok := c.entries.Get(cacheKey(tool, args))
	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) > c.ttl {
		c.entries.Remove(cacheKey(tool, args))
		return "", false
	}
	return entry.content, true
}

func (c *resultCache) put(tool string, args map[string]any, content string) {
	c.entries.Add(cacheKey(tool, args), cacheEntry{content: content, storedAt: time.Now()})
}

func (c *resultCache) purge() {
	c.entries.Purge()
}
