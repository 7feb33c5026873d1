package oci

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Oracle NUMBER is a base-100 floating point format: one exponent byte
// followed by up to 20 mantissa bytes. Positive numbers store digit+1 and
// an exponent of 193+e. Negative numbers store 101-digit, an exponent of
// 62-e and, when shorter than 20 digits, a terminating 102.
const (
	numberMaxLen    = 21 // exponent byte + 20 mantissa bytes
	varNumLen       = 22 // length byte + numberMaxLen
	numberMaxDigits = 40 // decimal digits in 20 base-100 digits
	numberMinExp100 = -65
	numberMaxExp100 = 62
)

// encodeNumber converts d to its NUMBER wire form
func encodeNumber(d decimal.Decimal) ([]byte, error) {
	if d.IsZero() {
		return []byte{0x80}, nil
	}
	negative := d.Sign() < 0
	digits := d.Abs().Coefficient().String()
	exp := int(d.Exponent())

	trimmed := strings.TrimRight(digits, "0")
	exp += len(digits) - len(trimmed)
	digits = trimmed

	// e10 is the decimal exponent of the leading digit
	e10 := len(digits) - 1 + exp
	exp100 := floorDiv(e10, 2)
	if exp100 < numberMinExp100 || exp100 > numberMaxExp100 {
		return nil, &ConversionError{From: "decimal", To: WireNumber.String(), Value: d, Reason: ReasonOverflow}
	}
	if e10%2 == 0 {
		digits = "0" + digits
	}
	if len(digits) > numberMaxDigits {
		return nil, &ConversionError{From: "decimal", To: WireNumber.String(), Value: d, Reason: ReasonTruncation,
			Err: fmt.Errorf("more than %d base-100 digits", numberMaxDigits/2)}
	}
	if len(digits)%2 == 1 {
		digits += "0"
	}

	n := len(digits) / 2
	out := make([]byte, 1, numberMaxLen+1)
	for i := 0; i < n; i++ {
		b := 10*(digits[2*i]-'0') + (digits[2*i+1] - '0')
		if negative {
			out = append(out, 101-b)
		} else {
			out = append(out, b+1)
		}
	}
	if negative {
		out[0] = byte(62 - exp100)
		if n < 20 {
			out = append(out, 102)
		}
	} else {
		out[0] = byte(193 + exp100)
	}
	return out, nil
}

// decodeNumber converts a NUMBER wire value to a decimal
func decodeNumber(b []byte) (decimal.Decimal, error) {
	if len(b) == 0 {
		return decimal.Zero, &ConversionError{From: WireNumber.String(), To: "decimal", Value: b, Reason: ReasonFormat,
			Err: fmt.Errorf("empty NUMBER")}
	}
	// trailing zero bytes are buffer padding, never digits
	for len(b) > 1 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	if len(b) == 1 && b[0] == 0x80 {
		return decimal.Zero, nil
	}
	negative := b[0]&0x80 == 0
	// infinities: 0x00 alone for negative, 0xFF 0x65 for positive. Other
	// values with exponent byte 0xFF are finite, 1e124 and up.
	if (negative && len(b) == 1) || (len(b) == 2 && b[0] == 0xFF && b[1] == 101) {
		return decimal.Zero, &ConversionError{From: WireNumber.String(), To: "decimal", Value: b, Reason: ReasonOverflow,
			Err: fmt.Errorf("infinite NUMBER")}
	}
	var exp100 int
	mantissa := b[1:]
	if negative {
		exp100 = 62 - int(b[0])
		if n := len(mantissa); n > 0 && mantissa[n-1] == 102 {
			mantissa = mantissa[:n-1]
		}
	} else {
		exp100 = int(b[0]) - 193
	}
	coef := new(big.Int)
	hundred := big.NewInt(100)
	for _, m := range mantissa {
		var digit int64
		if negative {
			digit = 101 - int64(m)
		} else {
			digit = int64(m) - 1
		}
		if digit < 0 || digit > 99 {
			return decimal.Zero, &ConversionError{From: WireNumber.String(), To: "decimal", Value: b, Reason: ReasonFormat,
				Err: fmt.Errorf("invalid base-100 digit %d", m)}
		}
		coef.Mul(coef, hundred)
		coef.Add(coef, big.NewInt(digit))
	}
	if negative {
		coef.Neg(coef)
	}
	return decimal.NewFromBigInt(coef, int32(2*(exp100-len(mantissa)+1))), nil
}

// encodeVarNum converts d to VARNUM: a length byte followed by the NUMBER
// bytes, in a fixed 22 byte element.
func encodeVarNum(dst []byte, d decimal.Decimal) error {
	num, err := encodeNumber(d)
	if err != nil {
		return err
	}
	clear(dst)
	dst[0] = byte(len(num))
	copy(dst[1:], num)
	return nil
}

func decodeVarNum(src []byte) (decimal.Decimal, error) {
	n := int(src[0])
	if n == 0 || n > numberMaxLen || n >= len(src) {
		return decimal.Zero, &ConversionError{From: WireVarNum.String(), To: "decimal", Value: src[:1], Reason: ReasonFormat,
			Err: fmt.Errorf("invalid VARNUM length %d", n)}
	}
	return decodeNumber(src[1 : 1+n])
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
