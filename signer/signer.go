// Package signer defines the signing port the exchange client depends on
// and the adapters that back it.
package signer

import (
	"context"

	"github.com/banky/hyperliquid-exec/nonce"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer produces 65 byte (r || s || v) EIP-712 signatures. The typed data
// carries the domain, type schema, primary type and message.
type Signer interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// NonceProvider is implemented by signers that own the nonce sequence of
// their wallet.
type NonceProvider interface {
	NonceSource() nonce.Source
}
