package types

import (
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vmihailenco/msgpack/v5"
)

const cloidLength = 16

// Cloid is a client-assigned 16 byte order id.
type Cloid [cloidLength]byte

var cloidT = reflect.TypeFor[Cloid]()

// ParseCloid strictly parses a 34 character 0x-prefixed hex string.
func ParseCloid(s string) (Cloid, error) {
	normalized, err := NormalizeCloid(s)
	if err != nil {
		return Cloid{}, err
	}

	var c Cloid
	copy(c[:], common.FromHex(normalized))
	return c, nil
}

// MustParseCloid is ParseCloid for literals known to be valid.
func MustParseCloid(s string) Cloid {
	c, err := ParseCloid(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex converts a Cloid to a hex string.
func (c Cloid) Hex() string { return hexutil.Encode(c[:]) }

func (c Cloid) String() string {
	return c.Hex()
}

// UnmarshalJSON parses a Cloid in hex syntax.
func (c *Cloid) UnmarshalJSON(input []byte) error {
	return hexutil.UnmarshalFixedJSON(cloidT, input, c[:])
}

// MarshalText returns the hex representation of c.
func (c Cloid) MarshalText() ([]byte, error) {
	return hexutil.Bytes(c[:]).MarshalText()
}

// The exchange hashes cloids as their hex text, not as raw bytes.
func (c Cloid) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(c.Hex())
}

func (c *Cloid) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}

	parsed, err := ParseCloid(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
