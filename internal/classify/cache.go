package classify

// DigestCache maps payload digests to serialized metadata blocks for the
// duration of one run. An empty text is a valid entry meaning "no metadata".
type DigestCache interface {
	Lookup(digest string) (string, bool)
	Insert(digest, text string)
}

// CacheStats counts lookups.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// MemoryCache is an unbounded in-memory DigestCache. Not safe for concurrent
// use; each archive gets its own.
type MemoryCache struct {
	entries map[string]string
	stats   CacheStats
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Lookup implements DigestCache.
func (c *MemoryCache) Lookup(digest string) (string, bool) {
	text, ok := c.entries[digest]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return text, ok
}

// Insert implements DigestCache.
func (c *MemoryCache) Insert(digest, text string) {
	c.entries[digest] = text
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *MemoryCache) Stats() CacheStats {
	return c.stats
}
