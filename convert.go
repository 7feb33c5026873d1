package oci

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"
)

// hostKind is a bit set of the host types a wire type can produce
type hostKind uint16

const (
	hostBool hostKind = 1 << iota
	hostInt
	hostUint
	hostFloat
	hostDecimal
	hostTime
	hostDuration
	hostUUID
	hostString
	hostBytes
	hostLob
)

func (k hostKind) String() string {
	switch k {
	case hostBool:
		return "bool"
	case hostInt:
		return "int64"
	case hostUint:
		return "uint64"
	case hostFloat:
		return "float64"
	case hostDecimal:
		return "decimal"
	case hostTime:
		return "time"
	case hostDuration:
		return "duration"
	case hostUUID:
		return "uuid"
	case hostString:
		return "string"
	case hostBytes:
		return "bytes"
	case hostLob:
		return "lob"
	default:
		return fmt.Sprintf("hostKind(%d)", uint16(k))
	}
}

// Ticks are 100ns units counted from 0001-01-01 00:00:00 UTC.
const (
	ticksPerSecond = int64(10_000_000)
	unixEpochTicks = int64(62135596800) * ticksPerSecond
)

// TimeToTicks returns the tick count of t
func TimeToTicks(t time.Time) int64 {
	return t.Unix()*ticksPerSecond + unixEpochTicks + int64(t.Nanosecond())/100
}

// TicksToTime returns the UTC time for a tick count
func TicksToTime(ticks int64) time.Time {
	ticks -= unixEpochTicks
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// DurationToTicks returns the tick count of d
func DurationToTicks(d time.Duration) int64 { return int64(d / 100) }

// TicksToDuration returns the duration of a tick count. Tick counts that
// do not fit a time.Duration are an overflow.
func TicksToDuration(ticks int64) (time.Duration, error) {
	if ticks > math.MaxInt64/100 || ticks < math.MinInt64/100 {
		return 0, &ConversionError{From: "ticks", To: "duration", Value: ticks, Reason: ReasonOverflow}
	}
	return time.Duration(ticks * 100), nil
}

// Layouts accepted when text is converted to a time
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const timeFormat = "2006-01-02 15:04:05.999999999"

// canonical normalizes a host value to one of the types the conversion
// functions understand: nil, bool, int64, uint64, float64,
// decimal.Decimal, time.Time, time.Duration, uuid.UUID, string, []byte or
// *Lob. Pointers and driver.Valuers are unwrapped.
func canonical(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool, int64, uint64, float64, decimal.Decimal, time.Time, time.Duration, uuid.UUID, string, []byte, *Lob:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case float32:
		return float64(v), nil
	case *big.Int:
		if v == nil {
			return nil, nil
		}
		return decimal.NewFromBigInt(v, 0), nil
	case decimal.NullDecimal:
		if !v.Valid {
			return nil, nil
		}
		return v.Decimal, nil
	case uuid.NullUUID:
		if !v.Valid {
			return nil, nil
		}
		return v.UUID, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case *int64:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case *float64:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return nil, errors.Wrap(err, "oci: driver.Valuer")
		}
		return canonical(dv)
	default:
		return nil, &ConversionError{From: fmt.Sprintf("%T", value), To: "host value", Value: value, Reason: ReasonMismatch}
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case decimal.Decimal:
		return "decimal"
	case time.Time:
		return "time"
	case time.Duration:
		return "duration"
	case uuid.UUID:
		return "uuid"
	case []byte:
		return "bytes"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func mismatch(v interface{}, to string) error {
	return &ConversionError{From: typeName(v), To: to, Value: v, Reason: ReasonMismatch}
}

func overflow(v interface{}, to string) error {
	return &ConversionError{From: typeName(v), To: to, Value: v, Reason: ReasonOverflow}
}

func badFormat(v interface{}, to string, err error) error {
	return &ConversionError{From: typeName(v), To: to, Value: v, Reason: ReasonFormat, Err: err}
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case decimal.Decimal:
		return !x.IsZero(), nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, badFormat(v, "bool", err)
		}
		return b, nil
	}
	return false, mismatch(v, "bool")
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, overflow(v, "int64")
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, &ConversionError{From: "float64", To: "int64", Value: v, Reason: ReasonTruncation}
		}
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, overflow(v, "int64")
		}
		return int64(x), nil
	case decimal.Decimal:
		return decimalToInt64(x)
	case time.Time:
		return TimeToTicks(x), nil
	case time.Duration:
		return DurationToTicks(x), nil
	case string:
		s := strings.TrimSpace(x)
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return i, nil
		}
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, overflow(v, "int64")
		}
		d, derr := decimal.NewFromString(s)
		if derr != nil {
			return 0, badFormat(v, "int64", err)
		}
		return decimalToInt64(d)
	}
	return 0, mismatch(v, "int64")
}

var (
	minInt64  = decimal.NewFromInt(math.MinInt64)
	maxInt64  = decimal.NewFromInt(math.MaxInt64)
	maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

func decimalToInt64(d decimal.Decimal) (int64, error) {
	if !d.Equal(d.Truncate(0)) {
		return 0, &ConversionError{From: "decimal", To: "int64", Value: d, Reason: ReasonTruncation}
	}
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, overflow(d, "int64")
	}
	return d.IntPart(), nil
}

func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case bool, int64, float64, time.Duration:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, overflow(v, "uint64")
		}
		return uint64(i), nil
	case decimal.Decimal:
		return decimalToUint64(x)
	case string:
		s := strings.TrimSpace(x)
		u, err := strconv.ParseUint(s, 10, 64)
		if err == nil {
			return u, nil
		}
		d, derr := decimal.NewFromString(s)
		if derr != nil {
			return 0, badFormat(v, "uint64", err)
		}
		return decimalToUint64(d)
	}
	return 0, mismatch(v, "uint64")
}

func decimalToUint64(d decimal.Decimal) (uint64, error) {
	if !d.Equal(d.Truncate(0)) {
		return 0, &ConversionError{From: "decimal", To: "uint64", Value: d, Reason: ReasonTruncation}
	}
	if d.Sign() < 0 || d.GreaterThan(maxUint64) {
		return 0, overflow(d, "uint64")
	}
	return d.BigInt().Uint64(), nil
}

// checkInt reports an overflow when i does not fit a signed integer of
// the given bit size
func checkInt(i int64, bits int, v interface{}) error {
	if bits == 64 {
		return nil
	}
	lim := int64(1) << (bits - 1)
	if i < -lim || i >= lim {
		return overflow(v, fmt.Sprintf("int%d", bits))
	}
	return nil
}

func checkUint(u uint64, bits int, v interface{}) error {
	if bits == 64 {
		return nil
	}
	if u >= uint64(1)<<bits {
		return overflow(v, fmt.Sprintf("uint%d", bits))
	}
	return nil
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64:
		return x, nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return 0, overflow(v, "float64")
			}
			return 0, badFormat(v, "float64", err)
		}
		return f, nil
	}
	return 0, mismatch(v, "float64")
}

func toFloat32(v interface{}) (float32, error) {
	f, err := toFloat64(v)
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, overflow(v, "float32")
	}
	return float32(f), nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, overflow(v, "decimal")
		}
		return decimal.NewFromFloat(x), nil
	case decimal.Decimal:
		return x, nil
	case time.Duration:
		return decimal.NewFromInt(DurationToTicks(x)), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, badFormat(v, "decimal", err)
		}
		return d, nil
	}
	return decimal.Zero, mismatch(v, "decimal")
}

func toTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return TicksToTime(x), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, badFormat(v, "time", fmt.Errorf("unrecognized layout"))
	}
	return time.Time{}, mismatch(v, "time")
}

func toDuration(v interface{}) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case int64:
		return TicksToDuration(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, overflow(v, "duration")
		}
		return TicksToDuration(int64(x))
	case decimal.Decimal:
		i, err := decimalToInt64(x)
		if err != nil {
			return 0, err
		}
		return TicksToDuration(i)
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(x))
		if err != nil {
			return 0, badFormat(v, "duration", err)
		}
		return d, nil
	}
	return 0, mismatch(v, "duration")
}

func toUUID(v interface{}) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case []byte:
		u, err := uuid.FromBytes(x)
		if err != nil {
			return uuid.Nil, badFormat(v, "uuid", err)
		}
		return u, nil
	case string:
		u, err := uuid.FromString(strings.TrimSpace(x))
		if err != nil {
			return uuid.Nil, badFormat(v, "uuid", err)
		}
		return u, nil
	}
	return uuid.Nil, mismatch(v, "uuid")
}

func toString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case decimal.Decimal:
		return x.String(), nil
	case time.Time:
		return x.Format(timeFormat), nil
	case time.Duration:
		return x.String(), nil
	case uuid.UUID:
		return x.String(), nil
	case []byte:
		return strings.ToUpper(hex.EncodeToString(x)), nil
	}
	return "", mismatch(v, "string")
}

func toBytes(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case uuid.UUID:
		return x.Bytes(), nil
	}
	return nil, mismatch(v, "bytes")
}

// inferWireType picks the wire type and element size used to bind a Go
// value whose type the caller did not state.
func inferWireType(value interface{}) (WireType, int, error) {
	v, err := canonical(value)
	if err != nil {
		return WireUndefined, 0, err
	}
	switch x := v.(type) {
	case nil:
		return WireVarChar, 1, nil
	case bool, int64:
		return WireInt, 8, nil
	case uint64:
		return WireUint, 8, nil
	case float64:
		return WireBDouble, 8, nil
	case decimal.Decimal:
		return WireVarNum, varNumLen, nil
	case time.Time:
		return WireTimestampTZ, 0, nil
	case time.Duration:
		return WireIntervalDS, 0, nil
	case uuid.UUID:
		return WireRaw, uuid.Size, nil
	case string:
		return WireChar, max(len(x), 1), nil
	case []byte:
		return WireRaw, max(len(x), 1), nil
	case *Lob:
		if x.kind == LobClob {
			return WireClob, 0, nil
		}
		return WireBlob, 0, nil
	}
	return WireUndefined, 0, mismatch(value, "wire type")
}
