package docindex

import (
	"crypto/sha256"
	"sync"
)

// Cache memoizes built indexes keyed by document content. An index is
// rebuilt only when the document text changes. Safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	normalize func(string) string
	cfg       Config
	entries   map[[32]byte]*Index
}

// NewCache creates a cache that builds indexes with the given normalize
// function and detection config.
func NewCache(normalize func(string) string, cfg Config) *Cache {
	return &Cache{
		normalize: normalize,
		cfg:       cfg,
		entries:   make(map[[32]byte]*Index),
	}
}

// Get returns the index for the document text, building it on first use.
func (c *Cache) Get(text string) *Index {
	key := sha256.Sum256([]byte(text))

	c.mu.RLock()
	idx, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return idx
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.entries[key]; ok {
		return idx
	}
	idx = Build(text, c.normalize, c.cfg)
	c.entries[key] = idx
	return idx
}
