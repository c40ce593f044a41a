package cache

import (
	"context"
	"time"

	"github.com/JimmyLeeSnow/xyflow/pkg/observability"
)

// Instrumented wraps a cache and reports hits, misses, and writes to
// the observability hooks.
type Instrumented struct {
	inner Cache
}

// Instrument wraps c with hit/miss reporting.
func Instrument(c Cache) *Instrumented {
	return &Instrumented{inner: c}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.inner.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, key)
		} else {
			observability.Cache().OnCacheMiss(ctx, key)
		}
	}
	return data, hit, err
}

func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.inner.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, key, len(data))
	}
	return err
}

func (c *Instrumented) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *Instrumented) Close() error { return c.inner.Close() }

var _ Cache = (*Instrumented)(nil)
