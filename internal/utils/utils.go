package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banky/hyperliquid-exec/types"
	"github.com/shopspring/decimal"
)

const maxRoundingDecimals = 12

// ToAPIDecimal renders a numeric value as plain base-10 text without
// exponent notation. Strings are trusted and returned unchanged.
func ToAPIDecimal(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return floatToDecimal(float64(v), 32)
	case float64:
		return floatToDecimal(v, 64)
	case decimal.Decimal:
		return v.String(), nil
	case *decimal.Decimal:
		if v == nil {
			return "", types.NewValidationError("", "nil decimal")
		}
		return v.String(), nil
	default:
		return "", types.NewValidationError("", "unsupported numeric type %T", value)
	}
}

func floatToDecimal(x float64, bitSize int) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", types.NewValidationError("", "non-finite value %v", x)
	}

	// Shortest round-tripping digits, re-expanded without an exponent.
	var d decimal.Decimal
	if bitSize == 32 {
		d = decimal.NewFromFloat32(float32(x))
	} else {
		d = decimal.NewFromFloat(x)
	}

	return d.String(), nil
}

// ParsePositiveDecimal accepts exact decimal text or a number and rejects
// zero, negatives and anything that is not plain decimal notation.
func ParsePositiveDecimal(field string, value any) (decimal.Decimal, string, error) {
	text, err := ToAPIDecimal(value)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			verr.Field = field
		}
		return decimal.Decimal{}, "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Decimal{}, "", types.NewValidationError(field, "is required")
	}
	if strings.ContainsAny(text, "eE") {
		return decimal.Decimal{}, "", types.NewValidationError(field, "exponent notation not allowed: %q", text)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, "", types.NewValidationError(field, "not a decimal: %q", text)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, "", types.NewValidationError(field, "must be positive, got %s", text)
	}

	return d, text, nil
}

// FormatRoundedDecimal rounds half away from zero to decimals places
// (clamped to [0,12]) and trims trailing zeros.
func FormatRoundedDecimal(value float64, decimals int) (string, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", types.NewValidationError("", "non-finite value %v", value)
	}
	return FormatRounded(decimal.NewFromFloat(value), decimals)
}

// FormatRounded is FormatRoundedDecimal for values already held as decimals.
func FormatRounded(value decimal.Decimal, decimals int) (string, error) {
	decimals = min(max(decimals, 0), maxRoundingDecimals)

	rounded := value.Round(int32(decimals))
	if !rounded.IsPositive() {
		return "", types.NewValidationError(
			"",
			"%s rounds to non-positive %s",
			value.String(),
			rounded.String(),
		)
	}

	return rounded.String(), nil
}

// FloatToInt scales x by 10^power and converts it to int64.
// Returns an error if the scaled value is not within 1e-3 of an integer,
// which prevents accidental precision loss when rounding.
func FloatToInt(x float64, power int64) (int64, error) {
	withDecimals := x * math.Pow10(int(power))

	rounded := math.Round(withDecimals)

	if math.Abs(rounded-withDecimals) >= 1e-3 {
		return 0, fmt.Errorf("float_to_int causes rounding: %v", x)
	}

	return int64(rounded), nil
}

// FloatToUsdInt converts a USD float to an int scaled by 1e6.
func FloatToUsdInt(x float64) (int64, error) {
	return FloatToInt(x, 6)
}

// GetDex extracts the dex name from a dex-qualified coin symbol
func GetDex(coin string) string {
	if i := strings.Index(coin, ":"); i != -1 {
		return coin[:i]
	}
	return ""
}
