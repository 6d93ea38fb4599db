package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// AllResources tags entries that must be dropped whenever any resource
// changes, such as list results.
const AllResources = "*"

// Key identifies a cached read by operation name and normalised arguments.
type Key struct {
	Op   string
	Args string
}

// NewKey builds a key. Arguments are trimmed and sorted so that equivalent
// calls map to the same entry.
func NewKey(op string, args ...string) Key {
	norm := make([]string, 0, len(args))
	for _, a := range args {
		norm = append(norm, strings.TrimSpace(a))
	}
	sort.Strings(norm)
	return Key{Op: op, Args: strings.Join(norm, "\x1f")}
}

func (k Key) String() string {
	if k.Args == "" {
		return k.Op
	}
	return k.Op + "(" + strings.ReplaceAll(k.Args, "\x1f", ",") + ")"
}

// Entry is one cached result.
type Entry struct {
	Key        Key
	Value      interface{}
	Resource   string
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the entry is older than its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Stats holds cache counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// ResultCache is a bounded TTL cache of read results. Expired entries are
// removed lazily on Get; when full, the least recently used entry goes.
type ResultCache struct {
	mu         sync.Mutex
	entries    *lru.Cache[Key, Entry]
	byResource map[string]map[Key]struct{}
	capacity   int
	clock      clock.Clock
	logger     *zap.Logger
	stats      Stats

	// generation counts invalidations and purges.
	generation uint64
}

// New creates a ResultCache holding at most capacity entries.
func New(capacity int, clk clock.Clock, logger *zap.Logger) (*ResultCache, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ResultCache{
		byResource: make(map[string]map[Key]struct{}),
		capacity:   capacity,
		clock:      clk,
		logger:     logger,
	}
	entries, err := lru.NewWithEvict[Key, Entry](capacity, c.onRemove)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// onRemove keeps the resource index in step with the LRU. It runs for
// evictions and explicit removals alike, always with c.mu held.
func (c *ResultCache) onRemove(key Key, e Entry) {
	if keys, ok := c.byResource[e.Resource]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byResource, e.Resource)
		}
	}
}

// Get returns the cached value for key if it is present and fresh.
func (c *ResultCache) Get(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if e.Expired(c.clock.Now()) {
		c.entries.Remove(key)
		c.stats.Misses++
		c.stats.Expired++
		c.logger.Debug("Cache entry expired", zap.String("key", key.String()))
		return nil, false
	}
	c.stats.Hits++
	return e.Value, true
}

// Put stores value under key, tagged with resource. A non-positive ttl
// stores nothing.
func (c *ResultCache) Put(key Key, resource string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, resource, value, ttl)
}

func (c *ResultCache) put(key Key, resource string, value interface{}, ttl time.Duration) {
	if old, ok := c.entries.Peek(key); ok && old.Resource != resource {
		c.entries.Remove(key)
	}
	evicted := c.entries.Add(key, Entry{
		Key:        key,
		Value:      value,
		Resource:   resource,
		InsertedAt: c.clock.Now(),
		TTL:        ttl,
	})
	if evicted {
		c.stats.Evictions++
	}
	if c.byResource[resource] == nil {
		c.byResource[resource] = make(map[Key]struct{})
	}
	c.byResource[resource][key] = struct{}{}

	c.logger.Debug("Result cached",
		zap.String("key", key.String()),
		zap.Duration("ttl", ttl),
		zap.Int("cache_size", c.entries.Len()),
	)
}

// Invalidate removes every entry for resource id and every entry tagged
// AllResources. It returns the number of entries removed.
func (c *ResultCache) Invalidate(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	removed := 0
	for _, res := range []string{id, AllResources} {
		keys := make([]Key, 0, len(c.byResource[res]))
		for k := range c.byResource[res] {
			keys = append(keys, k)
		}
		for _, k := range keys {
			if c.entries.Remove(k) {
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.Debug("Cache invalidated", zap.String("resource", id), zap.Int("removed", removed))
	}
	return removed
}

// Purge removes all entries.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries.Purge()
	c.byResource = make(map[string]map[Key]struct{})
	c.logger.Debug("Result cache cleared")
}

// Len returns the number of entries, fresh or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}

// Capacity returns the maximum cache capacity.
func (c *ResultCache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.entries.Len()
	s.Capacity = c.capacity
	return s
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. load runs without the lock held; errors are not cached. A result
// is not cached when an Invalidate or Purge happened while load ran, since
// it may predate the change.
func (c *ResultCache) GetOrLoad(key Key, resource string, ttl time.Duration, load func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("Stale result not cached", zap.String("key", key.String()))
		return v, nil
	}
	c.put(key, resource, v, ttl)
	return v, nil
}
