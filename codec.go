package oci

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// handleSize is the width of a descriptor or locator element
const handleSize = int(unsafe.Sizeof(Handle(0)))

// Size limits for variable-length elements
const (
	maxShortSize = 32767   // CHR, AFC, AVC, STR, BIN
	maxVarSize   = 65533   // VCS, VBI
	maxLongSize  = 1 << 30 // LVC, LVB
)

// codec describes how one element of a wire type is laid out in a bind
// or define buffer and converts host values to and from it.
type codec struct {
	wire     WireType
	category Category
	width    int // bytes per element including any header
	header   int // 0, 2 or 4 byte length prefix
	desc     DescriptorKind
	reads    hostKind // host kinds an accessor may request
	dynamic  bool
}

// codecEnv carries what encoding needs beyond the element bytes
type codecEnv struct {
	stmt *Statement
	form CharsetForm
}

func (env codecEnv) location() *time.Location {
	if env.stmt == nil || env.stmt.opts.Timezone == nil {
		return time.UTC
	}
	return env.stmt.opts.Timezone
}

const (
	readsNumeric  = hostBool | hostInt | hostUint | hostFloat | hostDecimal | hostDuration | hostString
	readsText     = hostBool | hostInt | hostUint | hostFloat | hostDecimal | hostTime | hostDuration | hostUUID | hostString | hostBytes
	readsBinary   = hostBytes | hostUUID | hostString
	readsTemporal = hostTime | hostInt | hostString
	readsLob      = hostLob | hostBytes | hostString
)

// newCodec validates size for the wire type and returns its element
// layout. size is the maximum value width for text and binary types and
// the integer or float width for INT, UIN and FLT; other types ignore it.
func newCodec(op string, wire WireType, size int, dynamic bool) (*codec, error) {
	c := &codec{wire: wire, dynamic: dynamic}
	badSize := func() error {
		return argumentError(op, "size", "invalid size %d for wire type %s", size, wire)
	}
	switch wire {
	case WireInt, WireUint:
		if size == 0 {
			size = 8
		}
		if size != 1 && size != 2 && size != 4 && size != 8 {
			return nil, badSize()
		}
		c.category, c.width, c.reads = CategoryNumeric, size, readsNumeric
	case WireFloat:
		if size == 0 {
			size = 8
		}
		if size != 4 && size != 8 {
			return nil, badSize()
		}
		c.category, c.width, c.reads = CategoryNumeric, size, readsNumeric
	case WireBFloat:
		c.category, c.width, c.reads = CategoryNumeric, 4, readsNumeric
	case WireBDouble:
		c.category, c.width, c.reads = CategoryNumeric, 8, readsNumeric
	case WireNumber:
		c.category, c.width, c.reads = CategoryNumeric, numberMaxLen, readsNumeric
	case WireVarNum:
		c.category, c.width, c.reads = CategoryNumeric, varNumLen, readsNumeric
	case WireChar, WireAnsiChar, WireCharZ:
		if !dynamic && (size < 1 || size > maxShortSize) {
			return nil, badSize()
		}
		c.category, c.width, c.reads = CategoryText, size, readsText
	case WireString:
		if !dynamic && (size < 1 || size > maxShortSize-1) {
			return nil, badSize()
		}
		c.category, c.width, c.reads = CategoryText, size+1, readsText
	case WireVarChar:
		if !dynamic && (size < 1 || size > maxVarSize) {
			return nil, badSize()
		}
		c.category, c.width, c.header, c.reads = CategoryText, size+2, 2, readsText
	case WireLongVarChar:
		if !dynamic && (size < 1 || size > maxLongSize) {
			return nil, badSize()
		}
		c.category, c.width, c.header, c.reads = CategoryText, size+4, 4, readsText
	case WireRaw:
		if !dynamic && (size < 1 || size > maxShortSize) {
			return nil, badSize()
		}
		c.category, c.width, c.reads = CategoryBinary, size, readsBinary
	case WireVarRaw:
		if !dynamic && (size < 1 || size > maxVarSize) {
			return nil, badSize()
		}
		c.category, c.width, c.header, c.reads = CategoryBinary, size+2, 2, readsBinary
	case WireLongVarRaw:
		if !dynamic && (size < 1 || size > maxLongSize) {
			return nil, badSize()
		}
		c.category, c.width, c.header, c.reads = CategoryBinary, size+4, 4, readsBinary
	case WireLong:
		c.category, c.reads = CategoryText, readsText
	case WireLongRaw:
		c.category, c.reads = CategoryBinary, readsBinary
	case WireDate:
		c.category, c.width, c.reads = CategoryTemporal, 7, readsTemporal
	case WireTimestamp, WireTimestampTZ, WireTimestampLTZ:
		c.category, c.width, c.reads = CategoryDescriptor, handleSize, readsTemporal
		c.desc = map[WireType]DescriptorKind{
			WireTimestamp:    DescriptorTimestamp,
			WireTimestampTZ:  DescriptorTimestampTZ,
			WireTimestampLTZ: DescriptorTimestampLTZ,
		}[wire]
	case WireIntervalDS:
		c.category, c.width, c.desc = CategoryDescriptor, handleSize, DescriptorIntervalDS
		c.reads = hostDuration | hostInt | hostString
	case WireIntervalYM:
		c.category, c.width, c.desc = CategoryDescriptor, handleSize, DescriptorIntervalYM
		c.reads = hostInt | hostString
	case WireClob, WireBlob:
		c.category, c.width, c.desc, c.reads = CategoryLOB, handleSize, DescriptorLob, readsLob
	case WireBFile:
		c.category, c.width, c.desc, c.reads = CategoryLOB, handleSize, DescriptorFile, readsLob
	default:
		return nil, argumentError(op, "wireType", "unsupported wire type %s", wire)
	}
	if dynamic {
		if c.category != CategoryText && c.category != CategoryBinary {
			return nil, argumentError(op, "wireType", "wire type %s cannot be transferred piecewise", wire)
		}
		c.width, c.header = 0, 0
	} else if wire == WireLong || wire == WireLongRaw {
		return nil, argumentError(op, "wireType", "wire type %s requires a dynamic slot", wire)
	}
	return c, nil
}

// capacity returns the number of value bytes an element can hold
func (c *codec) capacity() int {
	n := c.width - c.header
	if c.wire == WireString {
		n--
	}
	return n
}

// varLen reports whether elements carry a per-element actual length
func (c *codec) varLen() bool {
	switch c.category {
	case CategoryText, CategoryBinary:
		return true
	}
	return c.wire == WireNumber
}

// lengthArray reports whether the library is handed a per-element actual
// length array. The entries are 16 bits wide, so 4 byte header types
// carry their length only in the header.
func (c *codec) lengthArray() bool {
	return c.varLen() && !c.dynamic && c.header != 4
}

// encode converts v into dst, which holds the element's current bytes on
// entry. It returns the actual length to record for the element.
func (c *codec) encode(env codecEnv, dst []byte, v interface{}) (int, error) {
	switch c.wire {
	case WireInt:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if err := checkInt(i, c.width*8, v); err != nil {
			return 0, err
		}
		putUint(dst, uint64(i))
		return c.width, nil
	case WireUint:
		u, err := toUint64(v)
		if err != nil {
			return 0, err
		}
		if err := checkUint(u, c.width*8, v); err != nil {
			return 0, err
		}
		putUint(dst, u)
		return c.width, nil
	case WireFloat, WireBFloat, WireBDouble:
		if c.width == 4 {
			f, err := toFloat32(v)
			if err != nil {
				return 0, err
			}
			binary.NativeEndian.PutUint32(dst, math.Float32bits(f))
			return 4, nil
		}
		f, err := toFloat64(v)
		if err != nil {
			return 0, err
		}
		binary.NativeEndian.PutUint64(dst, math.Float64bits(f))
		return 8, nil
	case WireNumber:
		d, err := toDecimal(v)
		if err != nil {
			return 0, err
		}
		num, err := encodeNumber(d)
		if err != nil {
			return 0, err
		}
		clear(dst)
		copy(dst, num)
		return len(num), nil
	case WireVarNum:
		d, err := toDecimal(v)
		if err != nil {
			return 0, err
		}
		if err := encodeVarNum(dst, d); err != nil {
			return 0, err
		}
		return varNumLen, nil
	case WireDate:
		t, err := toTime(v)
		if err != nil {
			return 0, err
		}
		if err := encodeDate(dst, t.In(env.location())); err != nil {
			return 0, err
		}
		return 7, nil
	}

	switch c.category {
	case CategoryText, CategoryBinary:
		b, err := c.encodeValue(env, v)
		if err != nil {
			return 0, err
		}
		if len(b) > c.capacity() {
			return 0, &ConversionError{From: typeName(v), To: c.wire.String(), Value: v, Reason: ReasonTruncation,
				Err: fmt.Errorf("%d bytes exceed element size %d", len(b), c.capacity())}
		}
		clear(dst)
		switch c.header {
		case 2:
			binary.NativeEndian.PutUint16(dst, uint16(len(b)))
		case 4:
			binary.NativeEndian.PutUint32(dst, uint32(len(b)))
		}
		copy(dst[c.header:], b)
		if c.wire == WireString {
			return len(b) + 1, nil
		}
		return len(b), nil
	case CategoryDescriptor:
		return handleSize, c.encodeDescriptor(env, getHandle(dst), v)
	case CategoryLOB:
		return handleSize, c.encodeLob(env, getHandle(dst), v)
	}
	return 0, mismatch(v, c.wire.String())
}

// encodeValue converts v to the complete byte form of a text or binary
// value, without a header. It is also used by piecewise sources.
func (c *codec) encodeValue(env codecEnv, v interface{}) ([]byte, error) {
	if c.category == CategoryText || c.wire == WireClob {
		s, err := toString(v)
		if err != nil {
			return nil, err
		}
		return encodeText(env.form, s)
	}
	return toBytes(v)
}

func (c *codec) encodeDescriptor(env codecEnv, h Handle, v interface{}) error {
	if env.stmt == nil {
		return &StateError{Op: "Assign", State: "descriptor without statement"}
	}
	lib := env.stmt.lib
	switch c.desc {
	case DescriptorIntervalDS:
		d, err := toDuration(v)
		if err != nil {
			return err
		}
		return checkStatus(lib, "OCIIntervalSetDaySecond", lib.IntervalSet(h, c.desc, d, 0))
	case DescriptorIntervalYM:
		months, err := toInt64(v)
		if err != nil {
			return err
		}
		return checkStatus(lib, "OCIIntervalSetYearMonth", lib.IntervalSet(h, c.desc, 0, months))
	default:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		return checkStatus(lib, "OCIDateTimeConstruct", lib.DateTimeConstruct(h, t))
	}
}

// encodeLob copies a value into a temporary LOB created on the element's
// locator.
func (c *codec) encodeLob(env codecEnv, h Handle, v interface{}) error {
	if c.wire == WireBFile {
		return mismatch(v, c.wire.String())
	}
	var (
		data []byte
		err  error
	)
	if l, ok := v.(*Lob); ok {
		data, err = l.ReadAll()
	} else {
		data, err = c.encodeValue(env, v)
	}
	if err != nil {
		return err
	}
	if env.stmt == nil {
		return &StateError{Op: "Assign", State: "LOB without statement"}
	}
	kind := LobBlob
	if c.wire == WireClob {
		kind = LobClob
	}
	return env.stmt.writeTempLob(h, kind, data)
}

// decode converts the element src with actual length n to its canonical
// host value.
func (c *codec) decode(env codecEnv, src []byte, n int) (interface{}, error) {
	switch c.wire {
	case WireInt:
		u := getUint(src[:c.width])
		switch c.width {
		case 1:
			return int64(int8(u)), nil
		case 2:
			return int64(int16(u)), nil
		case 4:
			return int64(int32(u)), nil
		}
		return int64(u), nil
	case WireUint:
		return getUint(src[:c.width]), nil
	case WireFloat, WireBFloat, WireBDouble:
		if c.width == 4 {
			return float64(math.Float32frombits(binary.NativeEndian.Uint32(src))), nil
		}
		return math.Float64frombits(binary.NativeEndian.Uint64(src)), nil
	case WireNumber:
		if n <= 0 || n > numberMaxLen {
			n = numberMaxLen
		}
		return decodeNumber(src[:n])
	case WireVarNum:
		return decodeVarNum(src)
	case WireDate:
		return decodeDate(src, env.location())
	}

	switch c.category {
	case CategoryText, CategoryBinary:
		return c.decodeValue(env, c.payload(src, n))
	case CategoryDescriptor:
		return c.decodeDescriptor(env, getHandle(src))
	case CategoryLOB:
		if env.stmt == nil {
			return nil, &StateError{Op: "AsLob", State: "LOB without statement"}
		}
		return newLob(env.stmt, getHandle(src), c.wire, env.form), nil
	}
	return nil, &NotImplementedError{Op: "decode", WireType: c.wire}
}

// payload returns the value bytes of a variable-length element
func (c *codec) payload(src []byte, n int) []byte {
	switch c.header {
	case 2:
		n = int(binary.NativeEndian.Uint16(src))
	case 4:
		n = int(binary.NativeEndian.Uint32(src))
	}
	body := src[c.header:]
	if c.wire == WireString {
		for i, b := range body {
			if b == 0 {
				return body[:i]
			}
		}
		return body
	}
	if n < 0 || n > len(body) {
		n = len(body)
	}
	return body[:n]
}

// decodeValue converts the complete byte form of a text or binary value
func (c *codec) decodeValue(env codecEnv, b []byte) (interface{}, error) {
	if c.category == CategoryText {
		return decodeText(env.form, b)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (c *codec) decodeDescriptor(env codecEnv, h Handle) (interface{}, error) {
	if env.stmt == nil {
		return nil, &StateError{Op: "decode", State: "descriptor without statement"}
	}
	lib := env.stmt.lib
	switch c.desc {
	case DescriptorIntervalDS:
		d, _, st := lib.IntervalValue(h, c.desc)
		if err := checkStatus(lib, "OCIIntervalGetDaySecond", st); err != nil {
			return nil, err
		}
		return d, nil
	case DescriptorIntervalYM:
		_, months, st := lib.IntervalValue(h, c.desc)
		if err := checkStatus(lib, "OCIIntervalGetYearMonth", st); err != nil {
			return nil, err
		}
		return months, nil
	default:
		t, st := lib.DateTimeValue(h)
		if err := checkStatus(lib, "OCIDateTimeGetDate", st); err != nil {
			return nil, err
		}
		if c.desc == DescriptorTimestamp {
			y, mo, d := t.Date()
			hh, mm, ss := t.Clock()
			t = time.Date(y, mo, d, hh, mm, ss, t.Nanosecond(), env.location())
		}
		return t, nil
	}
}

// encodeDate writes the 7 byte DATE form of t
func encodeDate(dst []byte, t time.Time) error {
	y := t.Year()
	if y < 1 || y > 9999 {
		return overflow(t, WireDate.String())
	}
	dst[0] = byte(y/100 + 100)
	dst[1] = byte(y%100 + 100)
	dst[2] = byte(t.Month())
	dst[3] = byte(t.Day())
	dst[4] = byte(t.Hour() + 1)
	dst[5] = byte(t.Minute() + 1)
	dst[6] = byte(t.Second() + 1)
	return nil
}

func decodeDate(src []byte, loc *time.Location) (time.Time, error) {
	y := (int(src[0])-100)*100 + int(src[1]) - 100
	mo, d := int(src[2]), int(src[3])
	hh, mm, ss := int(src[4])-1, int(src[5])-1, int(src[6])-1
	if y < 1 || mo < 1 || mo > 12 || d < 1 || d > 31 || hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return time.Time{}, badFormat(src[:7], "time", fmt.Errorf("invalid DATE bytes % x", src[:7]))
	}
	return time.Date(y, time.Month(mo), d, hh, mm, ss, 0, loc), nil
}

// nativeUTF16 is the UTF-16 variant matching the host byte order, used
// for national character set buffers.
var nativeUTF16 encoding.Encoding = func() encoding.Encoding {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
}()

func encodeText(form CharsetForm, s string) ([]byte, error) {
	if form != CharsetNChar {
		return []byte(s), nil
	}
	b, err := nativeUTF16.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, badFormat(s, "UTF-16", err)
	}
	return b, nil
}

func decodeText(form CharsetForm, b []byte) (string, error) {
	if form != CharsetNChar {
		return string(b), nil
	}
	out, err := nativeUTF16.NewDecoder().Bytes(b)
	if err != nil {
		return "", badFormat(b, "string", err)
	}
	return string(out), nil
}

func putUint(dst []byte, u uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(u)
	case 2:
		binary.NativeEndian.PutUint16(dst, uint16(u))
	case 4:
		binary.NativeEndian.PutUint32(dst, uint32(u))
	default:
		binary.NativeEndian.PutUint64(dst, u)
	}
}

func getUint(src []byte) uint64 {
	switch len(src) {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(src))
	case 4:
		return uint64(binary.NativeEndian.Uint32(src))
	default:
		return binary.NativeEndian.Uint64(src)
	}
}

func getHandle(b []byte) Handle {
	if handleSize == 8 {
		return Handle(binary.NativeEndian.Uint64(b))
	}
	return Handle(binary.NativeEndian.Uint32(b))
}

func putHandle(b []byte, h Handle) {
	if handleSize == 8 {
		binary.NativeEndian.PutUint64(b, uint64(h))
		return
	}
	binary.NativeEndian.PutUint32(b, uint32(h))
}
