// Package resolver maps human symbols onto the exchange's asset index space.
package resolver

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banky/hyperliquid-exec/cache"
	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/internal/utils"
	"github.com/banky/hyperliquid-exec/types"
)

type Kind int

const (
	Perp Kind = iota
	Spot
	DexPerp
)

func (k Kind) String() string {
	switch k {
	case Perp:
		return "perp"
	case Spot:
		return "spot"
	case DexPerp:
		return "dexPerp"
	}
	return "unknown"
}

// Market is a resolved symbol: its asset index and the coin name the info
// endpoint uses for it.
type Market struct {
	Kind  Kind
	Index int64
	Coin  string
}

type Resolver struct {
	markets *cache.MarketCache
	scope   cache.Scope
}

// New binds a resolver to one deployment. markets may be shared between
// resolvers of different deployments.
func New(env constants.Environment, source cache.Source, markets *cache.MarketCache) *Resolver {
	return &Resolver{
		markets: markets,
		scope:   cache.Scope{Environment: env, Source: source},
	}
}

func (r *Resolver) Environment() constants.Environment {
	return r.scope.Environment
}

func (r *Resolver) Markets() *cache.MarketCache {
	return r.markets
}

func (r *Resolver) Scope() cache.Scope {
	return r.scope
}

// ResolveAssetIndex returns the asset index of symbol.
func (r *Resolver) ResolveAssetIndex(ctx context.Context, symbol string) (int64, error) {
	m, err := r.Resolve(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return m.Index, nil
}

// CoinName returns the name info queries such as l2Book expect for symbol.
func (r *Resolver) CoinName(ctx context.Context, symbol string) (string, error) {
	m, err := r.Resolve(ctx, symbol)
	if err != nil {
		return "", err
	}
	return m.Coin, nil
}

// Resolve dispatches on the shape of symbol:
//
//	@N          explicit spot index, no network call
//	dex:NAME    perp listed on a named perp dex
//	BASE/QUOTE  spot pair (BASE-QUOTE too, unless QUOTE is PERP or USD)
//	otherwise   perp on the default dex, matched on the text before "-"
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Market, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Market{}, types.NewValidationError("symbol", "is required")
	}

	if strings.HasPrefix(symbol, "@") {
		return resolveSpotIndex(symbol)
	}

	if dex := utils.GetDex(symbol); dex != "" {
		return r.resolveDexPerp(ctx, symbol, dex)
	}

	if base, quote, ok := splitPair(symbol); ok {
		return r.resolveSpotPair(ctx, symbol, base, quote)
	}

	return r.resolvePerp(ctx, symbol)
}

func resolveSpotIndex(symbol string) (Market, error) {
	// ParseUint refuses signs, so "@+5" and "@-1" fail here.
	n, err := strconv.ParseUint(symbol[1:], 10, 64)
	if err != nil || n > math.MaxInt64-constants.SPOT_ASSET_OFFSET {
		return Market{}, types.NewValidationError("symbol", "invalid spot index %q", symbol)
	}

	return Market{
		Kind:  Spot,
		Index: constants.SPOT_ASSET_OFFSET + int64(n),
		Coin:  symbol,
	}, nil
}

func (r *Resolver) resolveDexPerp(ctx context.Context, symbol string, dex string) (Market, error) {
	name := symbol[len(dex)+1:]
	if name == "" {
		return Market{}, types.NewValidationError("symbol", "missing asset name in %q", symbol)
	}

	dexs, err := r.markets.PerpDexs(ctx, r.scope)
	if err != nil {
		return Market{}, fmt.Errorf("fetch perp dexs: %w", err)
	}

	dexIndex := -1
	var dexName string
	for i, d := range dexs {
		if d != nil && strings.EqualFold(d.Name, dex) {
			dexIndex = i
			dexName = d.Name
			break
		}
	}
	if dexIndex < 0 {
		return Market{}, types.NewValidationError("symbol", "unknown perp dex %q", dex)
	}

	meta, err := r.markets.Meta(ctx, r.scope, dexName)
	if err != nil {
		return Market{}, fmt.Errorf("fetch meta for dex %s: %w", dexName, err)
	}

	// Dex universes list names either bare or dex-qualified.
	for i, asset := range meta.Universe {
		if strings.EqualFold(asset.Name, name) || strings.EqualFold(asset.Name, symbol) {
			index := constants.PERP_DEX_ASSET_OFFSET +
				int64(dexIndex)*constants.PERP_DEX_ASSET_STRIDE +
				int64(i)
			return Market{Kind: DexPerp, Index: index, Coin: asset.Name}, nil
		}
	}

	return Market{}, types.NewValidationError("symbol", "unknown asset %q on dex %s", name, dexName)
}

func splitPair(symbol string) (string, string, bool) {
	if base, quote, ok := strings.Cut(symbol, "/"); ok {
		return base, quote, base != "" && quote != ""
	}

	base, quote, ok := strings.Cut(symbol, "-")
	if !ok || base == "" || quote == "" {
		return "", "", false
	}

	switch strings.ToUpper(quote) {
	case "PERP", "USD":
		return "", "", false
	}
	return base, quote, true
}

func (r *Resolver) resolveSpotPair(ctx context.Context, symbol, base, quote string) (Market, error) {
	spot, err := r.markets.SpotMeta(ctx, r.scope)
	if err != nil {
		return Market{}, fmt.Errorf("fetch spot meta: %w", err)
	}

	baseToken, ok := findToken(spot.Tokens, base)
	if !ok {
		return Market{}, types.NewValidationError("symbol", "unknown spot token %q", base)
	}
	quoteToken, ok := findToken(spot.Tokens, quote)
	if !ok {
		return Market{}, types.NewValidationError("symbol", "unknown spot token %q", quote)
	}

	for _, market := range spot.Universe {
		if market.Tokens[0] == baseToken.Index && market.Tokens[1] == quoteToken.Index {
			return Market{
				Kind:  Spot,
				Index: constants.SPOT_ASSET_OFFSET + int64(market.Index),
				Coin:  market.Name,
			}, nil
		}
	}

	return Market{}, types.NewValidationError("symbol", "no spot market for %q", symbol)
}

// SpotToken looks a spot token up by name with the same matching rules as
// spot pairs.
func (r *Resolver) SpotToken(ctx context.Context, name string) (info.SpotTokenInfo, error) {
	spot, err := r.markets.SpotMeta(ctx, r.scope)
	if err != nil {
		return info.SpotTokenInfo{}, fmt.Errorf("fetch spot meta: %w", err)
	}

	token, ok := findToken(spot.Tokens, name)
	if !ok {
		return info.SpotTokenInfo{}, types.NewValidationError("token", "unknown spot token %q", name)
	}
	return token, nil
}

func findToken(tokens []info.SpotTokenInfo, name string) (info.SpotTokenInfo, bool) {
	want := tokenKey(name)
	for _, candidate := range []string{want, "U" + want} {
		for _, token := range tokens {
			if tokenKey(token.Name) == candidate {
				return token, true
			}
		}
	}
	return info.SpotTokenInfo{}, false
}

// tokenKey upper-cases name and drops a single trailing "0", which marks
// the exchange's wrapped alias of an asset.
func tokenKey(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if len(key) > 1 && strings.HasSuffix(key, "0") && !strings.HasSuffix(key, "00") {
		key = key[:len(key)-1]
	}
	return key
}

func (r *Resolver) resolvePerp(ctx context.Context, symbol string) (Market, error) {
	name, _, _ := strings.Cut(symbol, "-")

	meta, err := r.markets.Meta(ctx, r.scope, "")
	if err != nil {
		return Market{}, fmt.Errorf("fetch meta: %w", err)
	}

	for i, asset := range meta.Universe {
		if strings.EqualFold(asset.Name, name) {
			return Market{Kind: Perp, Index: int64(i), Coin: asset.Name}, nil
		}
	}

	return Market{}, types.NewValidationError("symbol", "unknown perp %q", symbol)
}
