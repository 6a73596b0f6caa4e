package cache

import (
	"context"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/info"
)

// Source is the subset of the info client the cache reads through.
type Source interface {
	BaseURL() string
	Meta(ctx context.Context, dex string) (*info.Meta, error)
	SpotMeta(ctx context.Context) (*info.SpotMeta, error)
	PerpDexs(ctx context.Context) (info.PerpDexs, error)
	AllMids(ctx context.Context, dex string) (map[string]string, error)
}

var _ Source = (*info.Info)(nil)

// Scope binds a deployment to the source that serves its metadata.
type Scope struct {
	Environment constants.Environment
	Source      Source
}

func (s Scope) key(namespace string) Key {
	return Key{
		Environment: s.Environment,
		BaseURL:     s.Source.BaseURL(),
		Namespace:   namespace,
	}
}

// MarketCache groups the four metadata stores. One instance may serve any
// number of scopes.
type MarketCache struct {
	meta *Store[*info.Meta]
	spot *Store[*info.SpotMeta]
	dexs *Store[info.PerpDexs]
	mids *Store[map[string]string]
}

func New(cfg Config) *MarketCache {
	return &MarketCache{
		meta: NewStore[*info.Meta]("meta", cfg),
		spot: NewStore[*info.SpotMeta]("spotMeta", cfg),
		dexs: NewStore[info.PerpDexs]("perpDexs", cfg),
		mids: NewStore[map[string]string]("allMids", cfg),
	}
}

// Meta returns the perp universe of dex ("" for the default dex).
func (c *MarketCache) Meta(ctx context.Context, scope Scope, dex string) (*info.Meta, error) {
	return c.meta.GetOrFetch(ctx, scope.key(dex), func(ctx context.Context) (*info.Meta, error) {
		return scope.Source.Meta(ctx, dex)
	})
}

func (c *MarketCache) SpotMeta(ctx context.Context, scope Scope) (*info.SpotMeta, error) {
	return c.spot.GetOrFetch(ctx, scope.key(""), scope.Source.SpotMeta)
}

func (c *MarketCache) PerpDexs(ctx context.Context, scope Scope) (info.PerpDexs, error) {
	return c.dexs.GetOrFetch(ctx, scope.key(""), scope.Source.PerpDexs)
}

func (c *MarketCache) AllMids(ctx context.Context, scope Scope, dex string) (map[string]string, error) {
	return c.mids.GetOrFetch(ctx, scope.key(dex), func(ctx context.Context) (map[string]string, error) {
		return scope.Source.AllMids(ctx, dex)
	})
}

// InvalidateAll drops every entry of every store.
func (c *MarketCache) InvalidateAll() {
	c.meta.InvalidateAll()
	c.spot.InvalidateAll()
	c.dexs.InvalidateAll()
	c.mids.InvalidateAll()
}

// Invalidate drops the entries of one scope, across all namespaces.
func (c *MarketCache) Invalidate(scope Scope) {
	match := func(k Key) bool {
		return k.Environment == scope.Environment && k.BaseURL == scope.Source.BaseURL()
	}
	invalidateWhere(c.meta, match)
	invalidateWhere(c.spot, match)
	invalidateWhere(c.dexs, match)
	invalidateWhere(c.mids, match)
}

// Size reports the number of entries across all stores.
func (c *MarketCache) Size() int {
	return c.meta.Len() + c.spot.Len() + c.dexs.Len() + c.mids.Len()
}

func invalidateWhere[V any](s *Store[V], match func(Key) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if match(k) {
			delete(s.entries, k)
		}
	}
}
