package exchange

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/banky/hyperliquid-exec/internal/utils"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) isBuy() bool { return s == Buy }

func (s Side) validate() error {
	switch s {
	case Buy, Sell:
		return nil
	}
	return types.NewValidationError("side", "must be %q or %q, got %q", Buy, Sell, s)
}

type Tif string

const (
	Alo Tif = "Alo"
	Ioc Tif = "Ioc"
	Gtc Tif = "Gtc"
)

type TpSl string

const (
	TakeProfit TpSl = "tp"
	StopLoss   TpSl = "sl"
)

// Trigger turns an order into a stop or take-profit. TriggerPrice accepts
// the same inputs as OrderIntent.Price.
type Trigger struct {
	IsMarket     bool
	TriggerPrice any
	TpSl         TpSl
}

// OrderIntent is an order as a caller describes it. Price and Size accept
// exact decimal text or any number utils.ToAPIDecimal renders; text is
// preferred since it never loses precision. Exactly one of TimeInForce or
// Trigger must be set.
type OrderIntent struct {
	Symbol      string
	Side        Side
	Price       any
	Size        any
	TimeInForce Tif
	Trigger     *Trigger
	ReduceOnly  bool
	// Optional 0x-prefixed 16 byte hex id
	Cloid string
}

// buildOrderWire validates an intent and resolves its symbol. Nothing is
// signed or sent.
func (e *Exchange) buildOrderWire(ctx context.Context, intent OrderIntent) (OrderWire, error) {
	if strings.TrimSpace(intent.Symbol) == "" {
		return OrderWire{}, types.NewValidationError("symbol", "is required")
	}
	if err := intent.Side.validate(); err != nil {
		return OrderWire{}, err
	}

	px, err := wireDecimal("price", intent.Price)
	if err != nil {
		return OrderWire{}, err
	}
	sz, err := wireDecimal("size", intent.Size)
	if err != nil {
		return OrderWire{}, err
	}

	orderType, err := intent.orderTypeWire()
	if err != nil {
		return OrderWire{}, err
	}

	var cloid *types.Cloid
	if intent.Cloid != "" {
		c, err := types.ParseCloid(intent.Cloid)
		if err != nil {
			return OrderWire{}, err
		}
		cloid = &c
	}

	asset, err := e.resolver.ResolveAssetIndex(ctx, intent.Symbol)
	if err != nil {
		return OrderWire{}, err
	}

	return OrderWire{
		A: asset,
		B: intent.Side.isBuy(),
		P: px,
		S: sz,
		R: intent.ReduceOnly,
		T: orderType,
		C: cloid,
	}, nil
}

func (o OrderIntent) orderTypeWire() (OrderTypeWire, error) {
	switch {
	case o.TimeInForce != "" && o.Trigger != nil:
		return OrderTypeWire{}, types.NewValidationError("orderType", "time in force and trigger are mutually exclusive")
	case o.Trigger != nil:
		switch o.Trigger.TpSl {
		case TakeProfit, StopLoss:
		default:
			return OrderTypeWire{}, types.NewValidationError("tpsl", "must be %q or %q, got %q", TakeProfit, StopLoss, o.Trigger.TpSl)
		}

		triggerPx, err := wireDecimal("triggerPrice", o.Trigger.TriggerPrice)
		if err != nil {
			return OrderTypeWire{}, err
		}
		return OrderTypeWire{
			Trigger: &TriggerWire{
				IsMarket:  o.Trigger.IsMarket,
				TriggerPx: triggerPx,
				TpSl:      o.Trigger.TpSl,
			},
		}, nil
	}

	switch o.TimeInForce {
	case Alo, Ioc, Gtc:
		return OrderTypeWire{Limit: &LimitWire{Tif: o.TimeInForce}}, nil
	case "":
		return OrderTypeWire{}, types.NewValidationError("orderType", "one of time in force or trigger is required")
	}
	return OrderTypeWire{}, types.NewValidationError("tif", "unknown time in force %q", o.TimeInForce)
}

// wireDecimal validates a positive decimal and renders it without
// trailing zeros, the form the exchange hashes.
func wireDecimal(field string, value any) (string, error) {
	d, _, err := utils.ParsePositiveDecimal(field, value)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

const (
	DefaultSlippageBps   = 30
	DefaultPriceDecimals = 6
)

// ComputeMarketIocLimitPrice offsets mark by slippageBps in the direction
// that crosses the book and rounds to decimals places.
func ComputeMarketIocLimitPrice(mark float64, side Side, slippageBps float64, decimals int) (string, error) {
	if err := side.validate(); err != nil {
		return "", err
	}
	if math.IsInf(mark, 0) || !(mark > 0) {
		return "", types.NewValidationError("markPrice", "must be positive, got %v", mark)
	}
	if math.IsNaN(slippageBps) || math.IsInf(slippageBps, 0) || slippageBps < 0 {
		return "", types.NewValidationError("slippageBps", "must be a non-negative number, got %v", slippageBps)
	}

	offset := decimal.NewFromFloat(slippageBps).Div(decimal.NewFromInt(10_000))
	factor := decimal.NewFromInt(1).Add(offset)
	if !side.isBuy() {
		factor = decimal.NewFromInt(1).Sub(offset)
	}

	px, err := utils.FormatRounded(decimal.NewFromFloat(mark).Mul(factor), decimals)
	if err != nil {
		return "", fmt.Errorf("market price for mark %v: %w", mark, err)
	}
	return px, nil
}
