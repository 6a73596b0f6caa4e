package info

import "github.com/shopspring/decimal"

// ===== Market Data Types =====

// L2Level represents a single level in the order book
type L2Level struct {
	Px decimal.Decimal `json:"px"`
	Sz decimal.Decimal `json:"sz"`
	N  int             `json:"n"`
}

// L2BookSnapshot contains level 2 order book data. Levels[0] holds bids,
// Levels[1] asks.
type L2BookSnapshot struct {
	Coin   string       `json:"coin"`
	Levels [2][]L2Level `json:"levels"`
	Time   int64        `json:"time"`
}

// AssetInfo contains metadata about an asset
type AssetInfo struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated,omitempty"`
	IsDelisted   bool   `json:"isDelisted,omitempty"`
}

// Meta contains exchange metadata for perpetuals. The position of an entry
// in Universe is its asset index within the dex.
type Meta struct {
	Universe []AssetInfo `json:"universe"`
}

// SpotAssetInfo contains spot asset metadata
type SpotAssetInfo struct {
	Name        string `json:"name"`
	Tokens      [2]int `json:"tokens"`
	Index       int    `json:"index"`
	IsCanonical bool   `json:"isCanonical"`
}

// SpotTokenInfo contains spot token metadata
type SpotTokenInfo struct {
	Name        string  `json:"name"`
	SzDecimals  int     `json:"szDecimals"`
	WeiDecimals int     `json:"weiDecimals"`
	Index       int     `json:"index"`
	TokenId     string  `json:"tokenId"`
	IsCanonical bool    `json:"isCanonical"`
	EvmContract any     `json:"evmContract"`
	FullName    *string `json:"fullName"`
}

// SpotMeta contains exchange metadata for spot trading
type SpotMeta struct {
	Universe []SpotAssetInfo `json:"universe"`
	Tokens   []SpotTokenInfo `json:"tokens"`
}

// PerpDex describes a builder-deployed perp dex. The default dex is
// reported as a null entry at position 0, so PerpDexs holds nil there.
type PerpDex struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Deployer string `json:"deployer"`
}

type PerpDexs []*PerpDex

// ===== User Account Types =====

// OpenOrder represents an open order
type OpenOrder struct {
	Coin      string  `json:"coin"`
	LimitPx   string  `json:"limitPx"`
	Oid       int64   `json:"oid"`
	Side      string  `json:"side"`
	Sz        string  `json:"sz"`
	Timestamp int64   `json:"timestamp"`
	Cloid     *string `json:"cloid,omitempty"`
}
