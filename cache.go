package seqstore

import lru "github.com/hashicorp/golang-lru/v2/simplelru"

// readCache is a bounded least-recently-used cache of decoded sequences.
// It is strictly a read accelerant: the record store never treats it as the
// source of truth for dirty data, so evicting an entry only removes the
// shortcut, never the record. A size of zero or less disables caching.
//
// The non-locking LRU variant is deliberate; a session has exactly one
// logical actor.
type readCache struct {
	lru *lru.LRU[string, string]
}

func newReadCache(size int) *readCache {
	if size <= 0 {
		return &readCache{}
	}

	c, err := lru.NewLRU[string, string](size, nil)
	if err != nil {
		// NewLRU only fails for non-positive sizes.
		panic(err)
	}

	return &readCache{lru: c}
}

// get returns the cached sequence and marks the header most recently used.
func (c *readCache) get(header string) (string, bool) {
	if c.lru == nil {
		return "", false
	}

	return c.lru.Get(header)
}

// put inserts or refreshes an entry, evicting the least recently used one
// when the bound is exceeded.
func (c *readCache) put(header, sequence string) {
	if c.lru == nil {
		return
	}

	c.lru.Add(header, sequence)
}

// invalidate drops the entry for header if present.
func (c *readCache) invalidate(header string) {
	if c.lru == nil {
		return
	}

	c.lru.Remove(header)
}

// contains reports whether header is cached, without touching recency.
func (c *readCache) contains(header string) bool {
	if c.lru == nil {
		return false
	}

	return c.lru.Contains(header)
}

func (c *readCache) len() int {
	if c.lru == nil {
		return 0
	}

	return c.lru.Len()
}
