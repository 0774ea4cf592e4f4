package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ResponseCache is an in-memory TTL cache for upstream responses.
//
// Intended for local development and research runs: repeated fetches of the
// same ticker and window hit memory instead of the network. It is disabled
// by CacheFromEnv when API_ENV=production.
type ResponseCache[V any] struct {
	mu    sync.RWMutex
	store map[string]cacheEntry[V]
	ttl   time.Duration
	now   func() time.Time
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache[V any](ttl time.Duration) *ResponseCache[V] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache[V]{
		store: make(map[string]cacheEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// CacheFromEnv returns a cache when ENABLE_DATA_CACHE=true and API_ENV is not
// production, or nil (caching disabled). DATA_CACHE_TTL overrides the
// one-hour default.
func CacheFromEnv[V any]() *ResponseCache[V] {
	if os.Getenv("ENABLE_DATA_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}
	ttl := time.Hour
	if s := os.Getenv("DATA_CACHE_TTL"); s != "" {
		if parsed, err := time.ParseDuration(s); err == nil {
			ttl = parsed
		}
	}
	return NewResponseCache[V](ttl)
}

// Get retrieves a cached value if available and not expired.
func (c *ResponseCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return zero, false
	}
	return entry.value, true
}

// Set stores a value and drops any expired entries.
func (c *ResponseCache[V]) Set(key string, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Len counts stored entries, expired or not.
func (c *ResponseCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries.
func (c *ResponseCache[V]) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]cacheEntry[V])
}

// GenerateCacheKey creates a deterministic key from request parts.
func GenerateCacheKey(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case time.Time:
			s[i] = v.Format("2006-01-02")
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	hash := sha256.Sum256([]byte(strings.Join(s, ":")))
	return hex.EncodeToString(hash[:])
}
