package exchange

import (
	"context"
	"fmt"
	"math/big"
	"slices"

	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/shopspring/decimal"
)

// BookSource serves a level 2 snapshot for a coin. Both the REST info
// client and the websocket client satisfy it.
type BookSource interface {
	L2Snapshot(ctx context.Context, coin string) (*info.L2BookSnapshot, error)
}

var _ BookSource = (*info.Info)(nil)

// DeriveTickSize infers the price increment of a coin from the spacing of
// its book levels: the GCD of the positive gaps between sorted distinct
// prices, at the finest precision seen. When no gap exists the tick is
// one unit of that precision.
func DeriveTickSize(ctx context.Context, books BookSource, coin string) (decimal.Decimal, error) {
	book, err := books.L2Snapshot(ctx, coin)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to fetch book for %s: %w", coin, err)
	}

	return tickSizeFromLevels(coin, book.Levels[0], book.Levels[1])
}

func tickSizeFromLevels(coin string, sides ...[]info.L2Level) (decimal.Decimal, error) {
	var prices []decimal.Decimal
	seen := map[string]bool{}
	for _, side := range sides {
		for _, level := range side {
			key := level.Px.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			prices = append(prices, level.Px)
		}
	}
	if len(prices) < 2 {
		return decimal.Decimal{}, types.NewValidationError(
			"book",
			"need at least 2 distinct price levels for %s, got %d",
			coin,
			len(prices),
		)
	}

	var places int32
	for _, p := range prices {
		places = max(places, -p.Exponent())
	}

	scaled := make([]*big.Int, len(prices))
	for i, p := range prices {
		scaled[i] = p.Shift(places).BigInt()
	}
	slices.SortFunc(scaled, func(a, b *big.Int) int { return a.Cmp(b) })

	gcd := new(big.Int)
	for i := 1; i < len(scaled); i++ {
		diff := new(big.Int).Sub(scaled[i], scaled[i-1])
		if diff.Sign() <= 0 {
			continue
		}
		if gcd.Sign() == 0 {
			gcd.Set(diff)
			continue
		}
		gcd.GCD(nil, nil, gcd, diff)
	}
	if gcd.Sign() == 0 {
		gcd.SetInt64(1)
	}

	return decimal.NewFromBigInt(gcd, -places), nil
}
