package cache

import (
	"context"
	"time"
)

// Scoped wraps a cache with a key prefix so multiple editor sessions
// can share one backend without key collisions. Revision counters are
// per store instance, so the prefix (typically the session id) is what
// keeps entries apart.
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a prefixed view of inner. Closing the scoped view
// does not close the shared backend.
func NewScoped(inner Cache, prefix string) *Scoped {
	return &Scoped{inner: inner, prefix: prefix}
}

func (c *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

func (c *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

func (c *Scoped) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close is a no-op; the shared backend outlives its scoped views.
func (c *Scoped) Close() error { return nil }

var _ Cache = (*Scoped)(nil)
