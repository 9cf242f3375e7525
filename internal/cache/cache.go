// Package cache memoizes word resolutions for one selection session and
// makes sure a word is never resolved twice at the same time.
package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/valpere/lexipop/internal/logging"
	"github.com/valpere/lexipop/internal/resolver"
)

type Resolver interface {
	Resolve(ctx context.Context, word string) resolver.Resolution
}

// Cache is keyed by the exact word (case-sensitive, punctuation kept).
// Failed resolutions are handed to every waiting caller but not kept, so the
// next request for that word tries again.
type Cache struct {
	resolver Resolver
	group    singleflight.Group
	logger   zerolog.Logger

	mu      sync.RWMutex
	entries map[string]resolver.Resolution
}

func New(r Resolver) *Cache {
	return &Cache{
		resolver: r,
		entries:  make(map[string]resolver.Resolution),
		logger:   logging.Component("cache"),
	}
}

// Get returns the memoized resolution of word, if any.
func (c *Cache) Get(word string) (resolver.Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[word]
	if !ok {
		return resolver.Resolution{}, false
	}
	return res.Clone(), true
}

// GetOrResolve returns the resolution of word, resolving it at most once.
// Callers arriving while a resolution is in flight wait for it and share its
// result. The flight runs under the first caller's ctx.
func (c *Cache) GetOrResolve(ctx context.Context, word string) resolver.Resolution {
	if res, ok := c.Get(word); ok {
		c.logger.Debug().Str("word", word).Msg("cache hit")
		return res
	}

	v, _, shared := c.group.Do(word, func() (interface{}, error) {
		// A flight for word may have finished between Get and Do.
		if res, ok := c.Get(word); ok {
			return res, nil
		}

		res := c.resolver.Resolve(ctx, word)
		if !res.Failed() {
			c.mu.Lock()
			c.entries[word] = res.Clone()
			c.mu.Unlock()
		}
		return res, nil
	})
	if shared {
		c.logger.Debug().Str("word", word).Msg("joined in-flight resolution")
	}

	return v.(resolver.Resolution).Clone()
}

// Forget drops the memoized resolution of word.
func (c *Cache) Forget(word string) {
	c.mu.Lock()
	delete(c.entries, word)
	c.mu.Unlock()
}

// Len returns the number of memoized words.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
