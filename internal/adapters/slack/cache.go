package slack

import (
	"sync"
	"time"
)

const emailCacheTTL = 30 * time.Minute

// emailCacheEntry holds a cached member ID with expiration
type emailCacheEntry struct {
	userID    string
	expiresAt time.Time
}

// emailCache provides thread-safe caching for email lookups
type emailCache struct {
	entries sync.Map
}

func newEmailCache() *emailCache {
	return &emailCache{}
}

// get retrieves a member ID from cache if not expired
func (c *emailCache) get(email string) (string, bool) {
	val, ok := c.entries.Load(email)
	if !ok {
		return "", false
	}
	entry := val.(*emailCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(email)
		return "", false
	}
	return entry.userID, true
}

// set stores a member ID in cache with TTL
func (c *emailCache) set(email, userID string) {
	c.entries.Store(email, &emailCacheEntry{
		userID:    userID,
		expiresAt: time.Now().Add(emailCacheTTL),
	})
}
