package signer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/banky/hyperliquid-exec/nonce"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var ErrDestroyed = errors.New("signer: key destroyed")

// PrivateKeySigner keeps a secp256k1 key sealed in a memguard enclave and
// only opens it for the duration of a signature.
type PrivateKeySigner struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
	address common.Address
	nonces  *nonce.Monotonic
}

var (
	_ Signer        = (*PrivateKeySigner)(nil)
	_ NonceProvider = (*PrivateKeySigner)(nil)
)

// NewPrivateKeySigner seals keyBytes. keyBytes is wiped before returning,
// whether or not the key was valid.
func NewPrivateKeySigner(keyBytes []byte) (*PrivateKeySigner, error) {
	privKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		memguard.WipeBytes(keyBytes)
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	addr := crypto.PubkeyToAddress(privKey.PublicKey)

	return &PrivateKeySigner{
		enclave: memguard.NewEnclave(keyBytes),
		address: addr,
		nonces:  nonce.ForWallet(addr),
	}, nil
}

// NewPrivateKeySignerHex parses a hex key, with or without 0x.
func NewPrivateKeySignerHex(hexKey string) (*PrivateKeySigner, error) {
	privKey, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewPrivateKeySigner(crypto.FromECDSA(privKey))
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// NonceSource returns the process-wide sequence of this wallet.
func (s *PrivateKeySigner) NonceSource() nonce.Source {
	return s.nonces.Source()
}

func (s *PrivateKeySigner) SignTypedData(
	ctx context.Context,
	data apitypes.TypedData,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.enclave == nil {
		return nil, ErrDestroyed
	}

	buf, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("open enclave: %w", err)
	}

	privKey, err := crypto.ToECDSA(buf.Bytes())
	buf.Destroy()
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	sig, err := crypto.Sign(digest, privKey)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	// 0/1 -> 27/28
	sig[64] += 27

	return sig, nil
}

// Destroy drops the sealed key. Later signatures fail with ErrDestroyed.
func (s *PrivateKeySigner) Destroy() {
	s.mu.Lock()
	s.enclave = nil
	s.mu.Unlock()
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
