package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/banky/hyperliquid-exec/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const signatureLength = 65

// Signature is an (r, s, v) triple with v normalized to 27 or 28.
type Signature struct {
	R common.Hash
	S common.Hash
	V byte
}

type signatureJSON struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// SplitSignature parses a 65 byte r || s || v signature. v below 27 is
// shifted by 27; any other value outside {27, 28} is mapped by parity.
func SplitSignature(sig []byte) (Signature, error) {
	if len(sig) != signatureLength {
		return Signature{}, types.NewValidationError(
			"signature",
			"expected %d bytes, got %d",
			signatureLength,
			len(sig),
		)
	}

	var out Signature
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		if v%2 == 1 {
			v = 27
		} else {
			v = 28
		}
	}
	out.V = v

	return out, nil
}

// ParseSignatureHex is SplitSignature for 0x-prefixed hex text.
func ParseSignatureHex(s string) (Signature, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Signature{}, types.NewValidationError("signature", "invalid hex: %v", err)
	}
	return SplitSignature(raw)
}

// MarshalJSON encodes the signature as:
// { "r": "0x...", "s": "0x...", "v": <number> }
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{
		R: hexutil.Encode(s.R[:]),
		S: hexutil.Encode(s.S[:]),
		V: s.V,
	})
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var a signatureJSON
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	r, err := hexutil.Decode(a.R)
	if err != nil || len(r) != common.HashLength {
		return fmt.Errorf("invalid r: %q", a.R)
	}
	sv, err := hexutil.Decode(a.S)
	if err != nil || len(sv) != common.HashLength {
		return fmt.Errorf("invalid s: %q", a.S)
	}

	copy(s.R[:], r)
	copy(s.S[:], sv)
	s.V = a.V
	return nil
}

func (s Signature) String() string {
	return fmt.Sprintf(
		"R: %s, S: %s, V: %d",
		hexutil.Encode(s.R[:]),
		hexutil.Encode(s.S[:]),
		s.V,
	)
}
