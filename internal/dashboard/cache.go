package dashboard

import (
	"context"
	"sync"
	"time"

	"blossom-cafe/internal/domain"
)

// Cache is a short-TTL read-through cache over the full order fetch. It
// only bridges the gap between a load and the first real-time event;
// mutations must call Invalidate before the next read.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	orders    []domain.Order
	fetchedAt time.Time
	valid     bool
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached list when fresh, otherwise calls fetch and caches
// the result. Fetch errors are never cached.
func (c *Cache) Get(ctx context.Context, fetch func(context.Context) ([]domain.Order, error)) ([]domain.Order, error) {
	c.mu.Lock()
	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		out := c.orders
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	orders, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.orders = orders
	c.fetchedAt = c.now()
	c.valid = true
	c.mu.Unlock()
	return orders, nil
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
