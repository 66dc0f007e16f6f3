package location

import (
	"context"
	"sync"
	"time"
)

// CachedProvider remembers the last successful fix and serves it for reads
// whose MaximumAge allows it, without touching the underlying sensor.
type CachedProvider struct {
	inner Provider
	now   func() time.Time

	mu   sync.Mutex
	last *Position
}

// NewCachedProvider wraps inner with a last-fix cache.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{inner: inner, now: time.Now}
}

// GetLocation returns the cached fix when it is no older than opts.MaximumAge,
// otherwise reads from the wrapped provider.
func (c *CachedProvider) GetLocation(ctx context.Context, opts PositionOptions) (Position, error) {
	c.mu.Lock()
	if c.last != nil && opts.MaximumAge > 0 && c.now().Sub(c.last.Timestamp) <= opts.MaximumAge {
		pos := *c.last
		c.mu.Unlock()
		return pos, nil
	}
	c.mu.Unlock()

	pos, err := c.inner.GetLocation(ctx, opts)
	if err != nil {
		return Position{}, err
	}

	c.mu.Lock()
	c.last = &pos
	c.mu.Unlock()
	return pos, nil
}
