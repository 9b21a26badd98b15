package chat

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the result cache when no size is configured.
const DefaultCacheSize = 1024

// ResultCache is a bounded LRU of pipeline results keyed by normalized
// message, user, and session. The original kept an unbounded map; the LRU
// caps memory under long-running load.
type ResultCache struct {
	lru *lru.Cache[string, Result]
}

// NewResultCache creates a cache holding at most size results.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

// Key builds the cache key for a message within a session.
func (c *ResultCache) Key(message, userID, sessionID string) string {
	return strings.ToLower(strings.TrimSpace(message)) + "::" + userID + "::" + sessionID
}

// Get returns a copy of the cached result.
func (c *ResultCache) Get(key string) (Result, bool) {
	return c.lru.Get(key)
}

// Add stores a result.
func (c *ResultCache) Add(key string, result Result) {
	c.lru.Add(key, result)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
