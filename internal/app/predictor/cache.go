package predictor

import (
	"fmt"
	"sync"
	"time"
)

// ─── Prediction Cache ───────────────────────────────────────────────────────

// CacheTTL expires served predictions.
const CacheTTL = 10 * time.Minute

type cacheEntry struct {
	prediction *Prediction
	storedAt   time.Time
}

// Cache memoizes served predictions per (draw type, day) pair.
// Concurrent writers race benignly; last writer wins.
type Cache struct {
	mu  sync.RWMutex
	now func() time.Time
	m   map[string]cacheEntry
}

func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now, m: make(map[string]cacheEntry)}
}

// cacheKey flattens the request scope. Zero type and nil day both map
// to "all".
func cacheKey(drawTypeID int64, dayOfWeek *int) string {
	typePart := "all"
	if drawTypeID != 0 {
		typePart = fmt.Sprintf("%d", drawTypeID)
	}
	dayPart := "all"
	if dayOfWeek != nil {
		dayPart = fmt.Sprintf("%d", *dayOfWeek)
	}
	return typePart + ":" + dayPart
}

// Get returns the cached prediction and its age when fresh.
func (c *Cache) Get(drawTypeID int64, dayOfWeek *int) (*Prediction, time.Duration, bool) {
	c.mu.RLock()
	entry, ok := c.m[cacheKey(drawTypeID, dayOfWeek)]
	c.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	age := c.now().Sub(entry.storedAt)
	if age >= CacheTTL {
		return nil, 0, false
	}
	return entry.prediction, age, true
}

// Put stores a served prediction.
func (c *Cache) Put(drawTypeID int64, dayOfWeek *int, p *Prediction) {
	c.mu.Lock()
	c.m[cacheKey(drawTypeID, dayOfWeek)] = cacheEntry{prediction: p, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops every cached prediction; called on new-data signal.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.m = make(map[string]cacheEntry)
	c.mu.Unlock()
}
