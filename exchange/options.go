package exchange

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
)

// Option adjusts a single exchange call.
type Option func(*callConfig)

type callConfig struct {
	nonce        mo.Option[int64]
	vault        mo.Option[common.Address]
	noVault      bool
	expiresAfter mo.Option[int64]
	builder      mo.Option[BuilderInfo]
	grouping     mo.Option[OrderGrouping]

	// market orders
	slippageBps   float64
	priceDecimals int
	markPrice     mo.Option[float64]
}

func defaultCallConfig() callConfig {
	return callConfig{
		slippageBps:   DefaultSlippageBps,
		priceDecimals: DefaultPriceDecimals,
	}
}

func applyOptions(opts []Option) callConfig {
	cfg := defaultCallConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithNonce supplies the nonce for a call when neither the signer nor the
// client config provides a nonce source.
func WithNonce(n int64) Option {
	return func(cfg *callConfig) {
		cfg.nonce = mo.Some(n)
	}
}

// WithVault signs and submits the call on behalf of vault, overriding
// Config.VaultAddress.
func WithVault(vault common.Address) Option {
	return func(cfg *callConfig) {
		cfg.vault = mo.Some(vault)
		cfg.noVault = false
	}
}

// WithoutVault drops the configured vault for one call.
func WithoutVault() Option {
	return func(cfg *callConfig) {
		cfg.vault = mo.None[common.Address]()
		cfg.noVault = true
	}
}

// WithExpiresAfter sets the expiry (unix ms) of an L1 action. It is
// ignored by user-signed actions.
func WithExpiresAfter(ms int64) Option {
	return func(cfg *callConfig) {
		cfg.expiresAfter = mo.Some(ms)
	}
}

// WithBuilder attaches a builder fee to an order action.
func WithBuilder(builder BuilderInfo) Option {
	return func(cfg *callConfig) {
		cfg.builder = mo.Some(builder)
	}
}

func WithGrouping(grouping OrderGrouping) Option {
	return func(cfg *callConfig) {
		cfg.grouping = mo.Some(grouping)
	}
}

// WithSlippageBps overrides the 30 bps market order slippage.
func WithSlippageBps(bps float64) Option {
	return func(cfg *callConfig) {
		cfg.slippageBps = bps
	}
}

// WithPriceDecimals overrides the 6 decimal rounding of market prices.
func WithPriceDecimals(decimals int) Option {
	return func(cfg *callConfig) {
		cfg.priceDecimals = decimals
	}
}

// WithMarkPrice prices a market order from mark instead of the live mid.
func WithMarkPrice(mark float64) Option {
	return func(cfg *callConfig) {
		cfg.markPrice = mo.Some(mark)
	}
}
