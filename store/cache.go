package store

import (
	"sync"

	"github.com/jasonbaker/agentm"
)

const defaultCacheLimit = 4096

type cacheKey struct {
	coll string
	key  string
}

type cacheEntry struct {
	rec  *agentm.Record
	meta ValueMeta
}

// recordCache keeps decoded records between read transactions. Every
// invalidation bumps the generation; a reader may only populate the cache
// with data read under the generation it observed before its transaction
// began, so records read before a commit never land in the cache after it.
//
// A commit drops its keys both before and after the storage commit. While
// any commit is in flight the cache serves what it has left but accepts
// nothing new.
type recordCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	limit   int
	gen     uint64
	pending int
}

func newRecordCache(limit int) *recordCache {
	if limit <= 0 {
		limit = defaultCacheLimit
	}
	return &recordCache{entries: make(map[cacheKey]cacheEntry), limit: limit}
}

func (c *recordCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *recordCache) get(k cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *recordCache) put(k cacheKey, e cacheEntry, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.pending > 0 {
		return
	}
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.limit {
		for victim := range c.entries {
			delete(c.entries, victim)
			break
		}
	}
	c.entries[k] = e
}

func (c *recordCache) beginCommit(keys []cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	c.dropLocked(keys)
}

// endCommit must follow every beginCommit, whether or not the commit went
// through.
func (c *recordCache) endCommit(keys []cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	c.dropLocked(keys)
}

func (c *recordCache) dropLocked(keys []cacheKey) {
	c.gen++
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *recordCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
