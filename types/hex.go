package types

import "strings"

const (
	addressHexLength = 42
	cloidHexLength   = 2 + 2*cloidLength
)

// NormalizeHex lower-cases a 0x-prefixed hex string and enforces an exact
// total length (prefix included). Nothing is padded or truncated.
func NormalizeHex(value string, length int, label string) (string, error) {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return "", NewValidationError(label, "must start with 0x, got %q", value)
	}

	if len(value) != length {
		return "", NewValidationError(
			label,
			"must be %d characters including 0x, got %d",
			length,
			len(value),
		)
	}

	lower := "0x" + strings.ToLower(value[2:])
	for _, c := range lower[2:] {
		if !isHexDigit(c) {
			return "", NewValidationError(label, "invalid hex character %q", c)
		}
	}

	return lower, nil
}

// NormalizeAddress validates a 20-byte account address.
func NormalizeAddress(value string) (string, error) {
	return NormalizeHex(value, addressHexLength, "address")
}

// NormalizeCloid validates a 16-byte client order id.
func NormalizeCloid(value string) (string, error) {
	return NormalizeHex(value, cloidHexLength, "cloid")
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
