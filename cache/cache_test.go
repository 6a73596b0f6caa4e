package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/info"
	"github.com/maxatome/go-testdeep/td"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingSource struct {
	baseURL string
	calls   map[string]int
	err     error
}

func newCountingSource(baseURL string) *countingSource {
	return &countingSource{baseURL: baseURL, calls: map[string]int{}}
}

func (s *countingSource) BaseURL() string { return s.baseURL }

func (s *countingSource) Meta(ctx context.Context, dex string) (*info.Meta, error) {
	s.calls["meta:"+dex]++
	if s.err != nil {
		return nil, s.err
	}
	return &info.Meta{Universe: []info.AssetInfo{{Name: "BTC"}, {Name: "ETH:" + dex}}}, nil
}

func (s *countingSource) SpotMeta(ctx context.Context) (*info.SpotMeta, error) {
	s.calls["spotMeta"]++
	return &info.SpotMeta{}, s.err
}

func (s *countingSource) PerpDexs(ctx context.Context) (info.PerpDexs, error) {
	s.calls["perpDexs"]++
	return info.PerpDexs{nil}, s.err
}

func (s *countingSource) AllMids(ctx context.Context, dex string) (map[string]string, error) {
	s.calls["allMids:"+dex]++
	return map[string]string{"BTC": "1"}, s.err
}

func TestStoreExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewStore[int]("test", Config{Now: clock.Now})
	key := Key{Environment: constants.Mainnet, BaseURL: "http://a"}

	s.Put(key, 7)
	v, ok := s.Get(key)
	td.Cmp(t, ok, true)
	td.Cmp(t, v, 7)

	clock.Advance(constants.METADATA_TTL - time.Millisecond)
	_, ok = s.Get(key)
	td.Cmp(t, ok, true, "still valid just before TTL")

	clock.Advance(time.Millisecond)
	_, ok = s.Get(key)
	td.Cmp(t, ok, false, "expired at exactly TTL")
}

func TestStoreInvalidate(t *testing.T) {
	s := NewStore[string]("test", Config{})
	a := Key{Environment: constants.Mainnet, BaseURL: "http://a"}
	b := Key{Environment: constants.Testnet, BaseURL: "http://a"}

	s.Put(a, "a")
	s.Put(b, "b")
	s.Invalidate(a)

	_, ok := s.Get(a)
	td.Cmp(t, ok, false)
	v, ok := s.Get(b)
	td.Cmp(t, ok, true)
	td.Cmp(t, v, "b")

	s.InvalidateAll()
	td.Cmp(t, s.Len(), 0)
}

func TestGetOrFetchFailureLeavesStoreUntouched(t *testing.T) {
	s := NewStore[int]("test", Config{})
	key := Key{Environment: constants.Mainnet, BaseURL: "http://a"}
	boom := errors.New("boom")

	_, err := s.GetOrFetch(context.Background(), key, func(context.Context) (int, error) {
		return 0, boom
	})
	td.Cmp(t, err, boom)
	td.Cmp(t, s.Len(), 0)
}

func TestMarketCacheReadThrough(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New(Config{Now: clock.Now})
	src := newCountingSource("http://stub")
	scope := Scope{Environment: constants.Mainnet, Source: src}
	ctx := context.Background()

	for range 3 {
		_, err := c.Meta(ctx, scope, "")
		td.CmpNoError(t, err)
		_, err = c.SpotMeta(ctx, scope)
		td.CmpNoError(t, err)
		_, err = c.PerpDexs(ctx, scope)
		td.CmpNoError(t, err)
		_, err = c.AllMids(ctx, scope, "")
		td.CmpNoError(t, err)
	}

	meta, err := c.Meta(ctx, scope, "xyz")
	td.CmpNoError(t, err)
	td.Cmp(t, meta.Universe[1].Name, "ETH:xyz")

	td.Cmp(t, src.calls, map[string]int{
		"meta:":    1,
		"meta:xyz": 1,
		"spotMeta": 1,
		"perpDexs": 1,
		"allMids:": 1,
	})

	clock.Advance(constants.METADATA_TTL)
	_, err = c.Meta(ctx, scope, "")
	td.CmpNoError(t, err)
	td.Cmp(t, src.calls["meta:"], 2)
}

func TestMarketCacheSeparatesEnvironments(t *testing.T) {
	c := New(Config{})
	src := newCountingSource("http://stub")
	ctx := context.Background()

	_, err := c.Meta(ctx, Scope{Environment: constants.Mainnet, Source: src}, "")
	td.CmpNoError(t, err)
	_, err = c.Meta(ctx, Scope{Environment: constants.Testnet, Source: src}, "")
	td.CmpNoError(t, err)
	td.Cmp(t, src.calls["meta:"], 2)

	c.Invalidate(Scope{Environment: constants.Testnet, Source: src})
	td.Cmp(t, c.Size(), 1)

	c.InvalidateAll()
	td.Cmp(t, c.Size(), 0)
}
