package quote

import (
	"sync"
	"time"

	"github.com/mtlprog/darkbear/internal/domain"
)

// quoteCache holds the last quote set read from the repository.
type quoteCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	quotes    domain.Quotes
	expiresAt time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{ttl: ttl}
}

func (c *quoteCache) get(now time.Time) (domain.Quotes, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.quotes == nil || now.After(c.expiresAt) {
		return nil, false
	}
	return c.quotes, true
}

func (c *quoteCache) set(quotes domain.Quotes, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes = quotes
	c.expiresAt = now.Add(c.ttl)
}

func (c *quoteCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes = nil
}
