package utils

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/banky/hyperliquid-exec/types"
	"github.com/shopspring/decimal"
)

func TestToAPIDecimal_Success(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{
			name:     "string passes through",
			input:    "0.0100",
			expected: "0.0100",
		},
		{
			name:     "int",
			input:    42,
			expected: "42",
		},
		{
			name:     "negative int64",
			input:    int64(-7),
			expected: "-7",
		},
		{
			name:     "uint64",
			input:    uint64(18446744073709551615),
			expected: "18446744073709551615",
		},
		{
			name:     "small float in exponent form",
			input:    1e-7,
			expected: "0.0000001",
		},
		{
			name:     "large float in exponent form",
			input:    1e21,
			expected: "1000000000000000000000",
		},
		{
			name:     "plain float",
			input:    1670.1,
			expected: "1670.1",
		},
		{
			name:     "negative zero",
			input:    math.Copysign(0.0, -1.0),
			expected: "0",
		},
		{
			name:     "float32",
			input:    float32(0.1),
			expected: "0.1",
		},
		{
			name:     "decimal",
			input:    decimal.RequireFromString("123.4500"),
			expected: "123.45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToAPIDecimal(tt.input)
			if err != nil {
				t.Fatalf("ToAPIDecimal(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("ToAPIDecimal(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToAPIDecimal_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, x := range []float64{1e-7, 2.5e-9, 3.14159e-12, 6.02e23} {
		got, err := ToAPIDecimal(x)
		if err != nil {
			t.Fatalf("ToAPIDecimal(%v) unexpected error: %v", x, err)
		}
		if strings.ContainsAny(got, "eE") {
			t.Fatalf("ToAPIDecimal(%v) = %q contains an exponent", x, got)
		}
		d, err := decimal.NewFromString(got)
		if err != nil {
			t.Fatalf("%q does not parse: %v", got, err)
		}
		if back, _ := d.Float64(); back != x {
			t.Fatalf("%q parses back to %v, want %v", got, back, x)
		}
	}
}

func TestToAPIDecimal_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input any
	}{
		{name: "NaN", input: math.NaN()},
		{name: "positive infinity", input: math.Inf(1)},
		{name: "negative infinity", input: math.Inf(-1)},
		{name: "unsupported type", input: []byte("1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToAPIDecimal(tt.input)
			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ToAPIDecimal(%v) expected ValidationError, got %v", tt.input, err)
			}
		})
	}
}

func TestParsePositiveDecimal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    any
		expected string
		wantErr  bool
	}{
		{name: "decimal text", input: "50000", expected: "50000"},
		{name: "trailing zeros kept", input: "0.0100", expected: "0.0100"},
		{name: "float", input: 0.01, expected: "0.01"},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "exponent text", input: "1e-3", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, text, err := ParsePositiveDecimal("price", tt.input)
			if tt.wantErr {
				var verr *types.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Field != "price" {
					t.Fatalf("field = %q, want price", verr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.expected {
				t.Fatalf("text = %q, want %q", text, tt.expected)
			}
		})
	}
}

func TestFormatRoundedDecimal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		value    float64
		decimals int
		expected string
		wantErr  bool
	}{
		{name: "trims zeros", value: 100.3, decimals: 6, expected: "100.3"},
		{name: "half away from zero", value: 2.5, decimals: 0, expected: "3"},
		{name: "half at two places", value: 1.005, decimals: 2, expected: "1.01"},
		{name: "negative decimals clamp to zero", value: 12.7, decimals: -3, expected: "13"},
		{name: "decimals clamp to twelve", value: 0.1234567890123456, decimals: 20, expected: "0.123456789012"},
		{name: "rounds to zero", value: 0.0000001, decimals: 6, wantErr: true},
		{name: "negative", value: -5, decimals: 2, wantErr: true},
		{name: "NaN", value: math.NaN(), decimals: 2, wantErr: true},
		{name: "infinity", value: math.Inf(1), decimals: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatRoundedDecimal(tt.value, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FormatRoundedDecimal(%v, %d) expected error, got %q", tt.value, tt.decimals, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatRoundedDecimal(%v, %d) unexpected error: %v", tt.value, tt.decimals, err)
			}
			if got != tt.expected {
				t.Fatalf("FormatRoundedDecimal(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.expected)
			}
		})
	}
}

func TestGetDex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{input: "xyz:XYZ100", want: "xyz"},
		{input: "BTC", want: ""},
		{input: ":weird", want: ""},
		{input: "abc:def:ghi", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := GetDex(tt.input)
			if got != tt.want {
				t.Fatalf("GetDex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloatToInt(t *testing.T) {
	tests := []struct {
		name    string
		x       float64
		power   int64
		want    int64
		wantErr bool
	}{
		{name: "simple positive", x: 12.34, power: 2, want: 1234},
		{name: "more decimals but still safe", x: 1.234567, power: 6, want: 1234567},
		{name: "negative value", x: -1.2345, power: 4, want: -12345},
		{name: "large rounding required", x: 0.1234567, power: 6, wantErr: true},
		{name: "already integer after scaling", x: 100.0, power: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FloatToInt(tt.x, tt.power)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FloatToInt(%v, %d) expected error, got %v", tt.x, tt.power, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FloatToInt(%v, %d) unexpected error: %v", tt.x, tt.power, err)
			}
			if got != tt.want {
				t.Fatalf("FloatToInt(%v, %d) = %v, want %v", tt.x, tt.power, got, tt.want)
			}
		})
	}
}

func TestFloatToUsdInt(t *testing.T) {
	got, err := FloatToUsdInt(12.345678)
	if err != nil {
		t.Fatalf("FloatToUsdInt unexpected error: %v", err)
	}
	if got != 12345678 {
		t.Fatalf("FloatToUsdInt = %d, want 12345678", got)
	}

	if _, err := FloatToUsdInt(0.0000015); err == nil {
		t.Fatal("FloatToUsdInt(0.0000015) expected error")
	}
}
