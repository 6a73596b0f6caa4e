package exchange

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/mo"
	"github.com/vmihailenco/msgpack/v5"
)

// encodeAction msgpack-encodes an action the way the exchange's verifier
// does: json field names in declaration order, omitempty honoured and
// integers in their smallest representation.
func encodeAction(action any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)

	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("failed to marshal action: %w", err)
	}
	return buf.Bytes(), nil
}

// ActionHash is the Keccak-256 of
//
//	msgpack(action) || nonce (u64 BE) || vault flag [|| vault address]
//	[|| 0x00 || expiresAfter (u64 BE)]
func ActionHash(
	action any,
	nonce int64,
	vaultAddress mo.Option[common.Address],
	expiresAfter mo.Option[int64],
) (common.Hash, error) {
	data, err := encodeAction(action)
	if err != nil {
		return common.Hash{}, err
	}

	data = binary.BigEndian.AppendUint64(data, uint64(nonce))

	if v, ok := vaultAddress.Get(); ok {
		data = append(data, 0x01)
		data = append(data, v.Bytes()...)
	} else {
		data = append(data, 0x00)
	}

	if e, ok := expiresAfter.Get(); ok {
		data = append(data, 0x00)
		data = binary.BigEndian.AppendUint64(data, uint64(e))
	}

	return crypto.Keccak256Hash(data), nil
}
