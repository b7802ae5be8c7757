package sheets

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// CachedReader is a read-through cache in front of another Reader.
// Entries expire after the configured TTL.
type CachedReader struct {
	next  Reader
	cache *expirable.LRU[string, [][]string]
}

// NewCachedReader wraps next with an LRU of size entries
func NewCachedReader(next Reader, size int, ttl time.Duration) *CachedReader {
	return &CachedReader{
		next:  next,
		cache: expirable.NewLRU[string, [][]string](size, nil, ttl),
	}
}

// Read serves rng from cache when present
func (c *CachedReader) Read(ctx context.Context, rng string) ([][]string, error) {
	if rows, ok := c.cache.Get(rng); ok {
		log.Debug().Str("range", rng).Msg("Sheet cache hit")
		return rows, nil
	}

	rows, err := c.next.Read(ctx, rng)
	if err != nil {
		return nil, err
	}
	c.cache.Add(rng, rows)
	return rows, nil
}

// Refresh drops any cached copy of rng and reads it again
func (c *CachedReader) Refresh(ctx context.Context, rng string) ([][]string, error) {
	c.cache.Remove(rng)
	return c.Read(ctx, rng)
}

// Purge empties the cache
func (c *CachedReader) Purge() {
	c.cache.Purge()
}
