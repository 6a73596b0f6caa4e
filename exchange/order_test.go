package exchange

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/maxatome/go-testdeep/td"
	"github.com/shopspring/decimal"
)

func TestComputeMarketIocLimitPrice(t *testing.T) {
	tests := []struct {
		name     string
		mark     float64
		side     Side
		bps      float64
		decimals int
		want     string
		wantErr  bool
	}{
		{name: "buy", mark: 100, side: Buy, bps: 30, decimals: 6, want: "100.3"},
		{name: "sell", mark: 100, side: Sell, bps: 30, decimals: 6, want: "99.7"},
		{name: "zero slippage", mark: 42.5, side: Buy, bps: 0, decimals: 6, want: "42.5"},
		{name: "rounded", mark: 1.23456789, side: Buy, bps: 10, decimals: 4, want: "1.2358"},
		{name: "zero mark", mark: 0, side: Buy, bps: 30, decimals: 6, wantErr: true},
		{name: "negative mark", mark: -1, side: Sell, bps: 30, decimals: 6, wantErr: true},
		{name: "NaN mark", mark: math.NaN(), side: Buy, bps: 30, decimals: 6, wantErr: true},
		{name: "negative bps", mark: 100, side: Buy, bps: -1, decimals: 6, wantErr: true},
		{name: "bad side", mark: 100, side: "long", bps: 30, decimals: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeMarketIocLimitPrice(tt.mark, tt.side, tt.bps, tt.decimals)
			if tt.wantErr {
				td.Cmp(t, err, td.Isa(&types.ValidationError{}))
				return
			}
			td.CmpNoError(t, err)
			td.Cmp(t, got, tt.want)
		})
	}
}

func TestOrderTypeWire(t *testing.T) {
	wire, err := OrderIntent{TimeInForce: Alo}.orderTypeWire()
	td.CmpNoError(t, err)
	td.Cmp(t, wire, OrderTypeWire{Limit: &LimitWire{Tif: Alo}})

	wire, err = OrderIntent{
		Trigger: &Trigger{IsMarket: true, TriggerPrice: "103.50", TpSl: StopLoss},
	}.orderTypeWire()
	td.CmpNoError(t, err)
	td.Cmp(t, wire, OrderTypeWire{
		Trigger: &TriggerWire{IsMarket: true, TriggerPx: "103.5", TpSl: StopLoss},
	})

	for name, intent := range map[string]OrderIntent{
		"neither":     {},
		"both":        {TimeInForce: Gtc, Trigger: &Trigger{TriggerPrice: "1", TpSl: TakeProfit}},
		"unknown tif": {TimeInForce: "Fok"},
		"bad tpsl":    {Trigger: &Trigger{TriggerPrice: "1", TpSl: "stop"}},
		"zero px":     {Trigger: &Trigger{TriggerPrice: "0", TpSl: TakeProfit}},
	} {
		_, err := intent.orderTypeWire()
		td.Cmp(t, err, td.Isa(&types.ValidationError{}), name)
	}
}

func TestWireDecimalTrimsTrailingZeros(t *testing.T) {
	for in, want := range map[any]string{
		"50000":    "50000",
		"0.0100":   "0.01",
		"1670.10":  "1670.1",
		0.0147:     "0.0147",
		int64(100): "100",
	} {
		got, err := wireDecimal("price", in)
		td.CmpNoError(t, err)
		td.Cmp(t, got, want, "%v", in)
	}

	_, err := wireDecimal("size", "1e3")
	var verr *types.ValidationError
	td.CmpTrue(t, errors.As(err, &verr))
	td.Cmp(t, verr.Field, "size")
}

type staticBooks map[string]*info.L2BookSnapshot

func (b staticBooks) L2Snapshot(ctx context.Context, coin string) (*info.L2BookSnapshot, error) {
	book, ok := b[coin]
	if !ok {
		return nil, errors.New("no book")
	}
	return book, nil
}

func levels(prices ...string) []info.L2Level {
	out := make([]info.L2Level, len(prices))
	for i, p := range prices {
		out[i] = info.L2Level{Px: decimal.RequireFromString(p), Sz: decimal.NewFromInt(1), N: 1}
	}
	return out
}

func TestDeriveTickSize(t *testing.T) {
	books := staticBooks{
		"BTC": {
			Coin:   "BTC",
			Levels: [2][]info.L2Level{levels("100.01", "100.00", "99.97"), levels("100.02", "100.05")},
		},
		"ETH": {
			Coin:   "ETH",
			Levels: [2][]info.L2Level{levels("3000.5", "2999"), levels("3001")},
		},
		"FLAT": {
			Coin:   "FLAT",
			Levels: [2][]info.L2Level{levels("1.5"), levels("1.5")},
		},
	}
	ctx := context.Background()

	tick, err := DeriveTickSize(ctx, books, "BTC")
	td.CmpNoError(t, err)
	td.Cmp(t, tick.String(), "0.01")

	tick, err = DeriveTickSize(ctx, books, "ETH")
	td.CmpNoError(t, err)
	td.Cmp(t, tick.String(), "0.5")

	_, err = DeriveTickSize(ctx, books, "FLAT")
	td.Cmp(t, err, td.Isa(&types.ValidationError{}))

	_, err = DeriveTickSize(ctx, books, "DOGE")
	td.CmpContains(t, err, "no book")
}
