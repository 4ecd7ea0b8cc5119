// Package shardedcache implements the small, bounded, concurrent cache
// behind C5's get(memory_id) cache: "shared mutable state... guarded by
// sharded locks (at least 16 shards) to keep contention bounded" (spec §5).
// The C8 rate limiter's per-client counters do not use it; internal/authrate
// keeps its own 16-shard map.
package shardedcache

import (
	"hash/fnv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const minShards = 16

// Cache is a sharded, fixed-capacity LRU keyed by string. Each shard is an
// independent github.com/hashicorp/golang-lru/v2.Cache guarded by its own
// mutex, so concurrent callers touching different shards never contend.
type Cache[V any] struct {
	shards []*shard[V]
}

type shard[V any] struct {
	mu    sync.Mutex
	inner *lru.Cache[string, V]
}

// New constructs a Cache with at least minShards shards, each holding up to
// perShardSize entries (so total capacity is roughly shardCount *
// perShardSize).
func New[V any](perShardSize int) *Cache[V] {
	c := &Cache[V]{shards: make([]*shard[V], minShards)}
	for i := range c.shards {
		inner, err := lru.New[string, V](perShardSize)
		if err != nil {
			// Only returns an error for a non-positive size, which would be
			// a caller bug; fall back to a single-entry cache rather than
			// panic in a hot path.
			inner, _ = lru.New[string, V](1)
		}
		c.shards[i] = &shard[V]{inner: inner}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the cached value for key, if present.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(key)
}

// Put inserts or overwrites the cached value for key.
func (c *Cache[V]) Put(key string, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Add(key, value)
}

// Remove evicts key, if present.
func (c *Cache[V]) Remove(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Remove(key)
}
