package gateway

import (
	"sync"
	"time"
)

const priceCacheTTL = 30 * time.Second

type priceCacheEntry struct {
	price     MarketPrice
	expiresAt time.Time
}

type priceCache struct {
	mu      sync.RWMutex
	entries map[string]priceCacheEntry
}

func newPriceCache() *priceCache {
	return &priceCache{
		entries: make(map[string]priceCacheEntry),
	}
}

func (c *priceCache) get(key string) (MarketPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return MarketPrice{}, false
	}
	return entry.price, true
}

func (c *priceCache) set(key string, price MarketPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = priceCacheEntry{
		price:     price,
		expiresAt: time.Now().Add(priceCacheTTL),
	}
}
