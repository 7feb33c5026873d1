package oci

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// =============================================================================
// NUMBER Encoding Tests (number.go)
// =============================================================================

func TestEncodeNumber_KnownValues(t *testing.T) {
	tests := []struct {
		input string
		want  []byte
	}{
		{"0", []byte{0x80}},
		{"1", []byte{0xC1, 0x02}},
		{"100", []byte{0xC2, 0x02}},
		{"123.45", []byte{0xC2, 0x02, 0x18, 0x2E}},
		{"0.5", []byte{0xC0, 0x33}},
		{"-1", []byte{0x3E, 0x64, 0x66}},
		{"-123.45", []byte{0x3D, 0x64, 0x4E, 0x38, 0x66}},
	}

	for _, tt := range tests {
		got, err := encodeNumber(decimal.RequireFromString(tt.input))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.input, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s: encoding mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestNumber_RoundTrip(t *testing.T) {
	inputs := []string{
		"0", "1", "-1", "7", "10", "99", "100", "101", "-100",
		"3.14159265358979", "-0.001", "0.000001", "123456789012345678",
		"-9223372036854775808", "18446744073709551615",
		"1e125", "1e-130", "12345678901234567890123456789012345678",
		"1e124", "5.5e125", "9.99e125", "-1e124", "-5.5e125",
	}

	for _, in := range inputs {
		d := decimal.RequireFromString(in)
		b, err := encodeNumber(d)
		if err != nil {
			t.Errorf("%s: encode failed: %v", in, err)
			continue
		}
		if len(b) > numberMaxLen {
			t.Errorf("%s: %d bytes exceeds %d", in, len(b), numberMaxLen)
		}
		got, err := decodeNumber(b)
		if err != nil {
			t.Errorf("%s: decode failed: %v", in, err)
			continue
		}
		if !got.Equal(d) {
			t.Errorf("%s: round trip returned %s", in, got)
		}
	}
}

func TestDecodeNumber_LargestExponent(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0xFF, 0x02}, "1e124"},
		{[]byte{0xFF, 0x0B}, "1e125"},
		{[]byte{0xFF, 0x38}, "5.5e125"},
	}
	for _, tt := range tests {
		got, err := decodeNumber(tt.in)
		if err != nil {
			t.Errorf("% x: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("% x: expected %s, got %s", tt.in, tt.want, got)
		}
	}

	for _, inf := range [][]byte{{0xFF, 0x65}, {0x00}} {
		var ce *ConversionError
		if _, err := decodeNumber(inf); !errors.As(err, &ce) || ce.Reason != ReasonOverflow {
			t.Errorf("% x: expected overflow, got %v", inf, err)
		}
	}
}

func TestEncodeNumber_Overflow(t *testing.T) {
	for _, in := range []string{"1e126", "-1e126", "1e-131"} {
		_, err := encodeNumber(decimal.RequireFromString(in))
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConversionError, got %v", in, err)
		}
		if ce.Reason != ReasonOverflow {
			t.Errorf("%s: expected overflow, got %s", in, ce.Reason)
		}
	}
}

func TestEncodeNumber_TooManyDigits(t *testing.T) {
	_, err := encodeNumber(decimal.RequireFromString("12345678901234567890123456789012345678901"))
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if ce.Reason != ReasonTruncation {
		t.Errorf("expected truncation, got %s", ce.Reason)
	}
}

func TestDecodeNumber_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		reason ConversionReason
	}{
		{"empty", nil, ReasonFormat},
		{"positive infinity", []byte{0xFF, 0x65}, ReasonOverflow},
		{"negative infinity", []byte{0x00}, ReasonOverflow},
		{"bad digit", []byte{0xC1, 0x66}, ReasonFormat},
	}

	for _, tt := range tests {
		_, err := decodeNumber(tt.input)
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConversionError, got %v", tt.name, err)
		}
		if ce.Reason != tt.reason {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.reason, ce.Reason)
		}
	}
}

func TestDecodeNumber_Padded(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte{0x80, 0x00, 0x00}, "0"},
		{[]byte{0xC1, 0x02, 0x00, 0x00}, "1"},
		{[]byte{0x80, 0x02}, "1e-130"},
	}
	for _, tt := range tests {
		got, err := decodeNumber(tt.input)
		if err != nil {
			t.Fatalf("% x: unexpected error: %v", tt.input, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("% x: expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

// =============================================================================
// VARNUM Tests (number.go)
// =============================================================================

func TestVarNum_Layout(t *testing.T) {
	dst := make([]byte, varNumLen)
	if err := encodeVarNum(dst, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := make([]byte, varNumLen)
	want[0], want[1], want[2] = 2, 0xC1, 0x02
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}

	got, err := decodeVarNum(dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", got)
	}
}

func TestVarNum_ReusedBufferIsCleared(t *testing.T) {
	dst := make([]byte, varNumLen)
	if err := encodeVarNum(dst, decimal.RequireFromString("-123.45")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := encodeVarNum(dst, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, b := range dst[3:] {
		if b != 0 {
			t.Fatalf("byte %d not cleared: %#x", i+3, b)
		}
	}
}

func TestDecodeVarNum_BadLength(t *testing.T) {
	for _, n := range []byte{0, 22, 200} {
		src := make([]byte, varNumLen)
		src[0] = n
		if _, err := decodeVarNum(src); !errors.Is(err, ErrConversion) {
			t.Errorf("length %d: expected conversion error, got %v", n, err)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{5, 2, 2},
		{4, 2, 2},
		{-1, 2, -1},
		{-2, 2, -1},
		{-3, 2, -2},
		{0, 2, 0},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
