package export

import (
	"context"
	"time"

	"github.com/JimmyLeeSnow/xyflow/pkg/cache"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

// artifactTTL bounds export cache growth. Entries are keyed by store
// revision and format, so they never go stale.
const artifactTTL = time.Hour

// Service memoizes rendered exports by store revision.
type Service struct {
	store     *store.Store
	artifacts cache.Cache
	opts      Options
}

// NewService builds an export service. A nil cache disables
// memoization.
func NewService(st *store.Store, c cache.Cache, opts Options) *Service {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Service{
		store:     st,
		artifacts: cache.Instrument(c),
		opts:      opts,
	}
}

// Export renders the current graph in the requested format, reusing a
// cached artifact when the store has not changed since it was rendered.
func (s *Service) Export(ctx context.Context, format Format) ([]byte, error) {
	key := cache.ExportKey(s.store.Revision(), string(format))
	if data, hit, err := s.artifacts.Get(ctx, key); err == nil && hit {
		return data, nil
	}

	data, err := Render(ctx, ToDOT(s.store, s.opts), format)
	if err != nil {
		return nil, err
	}

	// Best effort; a failed cache write only costs a re-render.
	_ = s.artifacts.Set(ctx, key, data, artifactTTL)
	return data, nil
}
