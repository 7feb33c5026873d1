package oci

import (
	"database/sql"
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"
)

// slot is the state shared by binds and defines: a codec, the column
// buffer it lays elements out in and the owning statement.
type slot struct {
	stmt    *Statement
	codec   *codec
	col     *column
	form    CharsetForm
	kind    SlotKind
	label   string // ":name", "#2" or "column 3" in errors
	scratch []byte
	pw      *piecewise // dynamic slots only

	// rows bounds the readable elements of a define to the rows of the
	// current batch
	rows     func() int
	released bool
}

func newSlot(stmt *Statement, c *codec, kind SlotKind, n int, form CharsetForm, label string) (*slot, error) {
	s := &slot{
		stmt:  stmt,
		codec: c,
		form:  form,
		kind:  kind,
		label: label,
		col:   newColumn(c.width, 0),
	}
	if kind == KindDynamic {
		s.pw = newPiecewise(s.col, stmt.opts.PieceSize)
	}
	if err := s.resize(n); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *slot) env() codecEnv { return codecEnv{stmt: s.stmt, form: s.form} }

// resize grows or shrinks the slot to n elements, allocating a descriptor
// for every new element of a descriptor or LOB type and freeing the
// descriptors of dropped elements.
func (s *slot) resize(n int) error {
	old := s.col.len()
	if n < old && s.codec.desc != DescriptorNone {
		for i := n; i < old; i++ {
			if err := s.stmt.freeDescriptor(getHandle(s.col.elem(i)), s.codec.desc); err != nil {
				return err
			}
		}
	}
	s.col.resize(n)
	if s.pw != nil {
		s.pw.resize(n)
	}
	if s.codec.desc == DescriptorNone {
		return nil
	}
	for i := old; i < n; i++ {
		h, err := s.stmt.allocDescriptor(s.codec.desc)
		if err != nil {
			s.col.resize(i)
			return err
		}
		putHandle(s.col.elem(i), h)
	}
	return nil
}

// check validates that the statement is open and i addresses an element
func (s *slot) check(op string, i int) error {
	if err := s.stmt.checkOpen(op); err != nil {
		return err
	}
	if s.released {
		return &StateError{Op: op, State: s.label + " released by a newer execution"}
	}
	n := s.col.len()
	if s.rows != nil {
		n = min(n, s.rows())
	}
	if i < 0 || i >= n {
		return argumentError(op, s.label, "index %d out of range [0,%d)", i, n)
	}
	return nil
}

// release frees the slot's descriptors and empties it. Any later use
// fails with a StateError.
func (s *slot) release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.resize(0)
}

// assign converts v and commits it to element i. On failure the element's
// bytes, length and indicator are left as they were.
func (s *slot) assign(op string, i int, v interface{}) error {
	if err := s.check(op, i); err != nil {
		return err
	}
	cv, err := canonical(v)
	if err != nil {
		return err
	}
	if cv == nil {
		s.col.setNull(i)
		return nil
	}
	if s.pw != nil {
		b, err := s.codec.encodeValue(s.env(), cv)
		if err != nil {
			return err
		}
		s.pw.setValue(i, b)
		s.col.ind[i] = int16(IndicatorNotNull)
		return nil
	}
	if cap(s.scratch) < s.codec.width {
		s.scratch = make([]byte, s.codec.width)
	}
	tmp := s.scratch[:s.codec.width]
	copy(tmp, s.col.elem(i))
	n, err := s.codec.encode(s.env(), tmp, cv)
	if err != nil {
		return err
	}
	s.col.store(i, tmp, n)
	return nil
}

func (s *slot) setNull(op string, i int) error {
	if err := s.check(op, i); err != nil {
		return err
	}
	s.col.setNull(i)
	return nil
}

// value decodes element i for an accessor requesting want. A null
// element returns nil without decoding.
func (s *slot) value(op string, i int, want hostKind) (interface{}, error) {
	if err := s.check(op, i); err != nil {
		return nil, err
	}
	if want != 0 && s.codec.reads&want == 0 {
		return nil, &NotImplementedError{Op: op, WireType: s.codec.wire}
	}
	if s.col.isNull(i) {
		return nil, nil
	}
	if s.pw != nil {
		return s.codec.decodeValue(s.env(), s.pw.values[i])
	}
	return s.codec.decode(s.env(), s.col.elem(i), int(s.col.lengths[i]))
}

// The accessors below are shared by Bind and Define. A null element
// yields the zero value and no error; use IsDBNull or Get to tell null
// from zero.

// IsDBNull reports whether element i is null
func (s *slot) IsDBNull(i int) (bool, error) {
	if err := s.check("IsDBNull", i); err != nil {
		return false, err
	}
	return s.col.isNull(i), nil
}

// Indicator returns the raw indicator of element i
func (s *slot) Indicator(i int) (Indicator, error) {
	if err := s.check("Indicator", i); err != nil {
		return 0, err
	}
	return s.col.indicator(i), nil
}

// Truncated reports whether element i was truncated by the library
func (s *slot) Truncated(i int) (bool, error) {
	ind, err := s.Indicator(i)
	return ind.Truncated(), err
}

// ReturnCode returns the per-element return code, 0 when the element
// transferred cleanly
func (s *slot) ReturnCode(i int) (uint16, error) {
	if err := s.check("ReturnCode", i); err != nil {
		return 0, err
	}
	return s.col.codes[i], nil
}

// WireType returns the slot's wire type
func (s *slot) WireType() WireType { return s.codec.wire }

// Kind returns the slot's transfer strategy
func (s *slot) Kind() SlotKind { return s.kind }

// Len returns the number of elements
func (s *slot) Len() int { return s.col.len() }

// Value returns element i as its canonical Go value: int64, uint64,
// float64, decimal.Decimal, string, []byte, time.Time, time.Duration or
// *Lob. A null element returns nil.
func (s *slot) Value(i int) (interface{}, error) {
	return s.value("Value", i, 0)
}

func (s *slot) AsBool(i int) (bool, error) {
	v, err := s.value("AsBool", i, hostBool)
	if v == nil || err != nil {
		return false, err
	}
	return toBool(v)
}

func (s *slot) asInt(op string, i int, bits int) (int64, error) {
	v, err := s.value(op, i, hostInt)
	if v == nil || err != nil {
		return 0, err
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return n, checkInt(n, bits, v)
}

func (s *slot) asUint(op string, i int, bits int) (uint64, error) {
	v, err := s.value(op, i, hostUint)
	if v == nil || err != nil {
		return 0, err
	}
	n, err := toUint64(v)
	if err != nil {
		return 0, err
	}
	return n, checkUint(n, bits, v)
}

func (s *slot) AsInt8(i int) (int8, error) {
	n, err := s.asInt("AsInt8", i, 8)
	return int8(n), err
}

func (s *slot) AsInt16(i int) (int16, error) {
	n, err := s.asInt("AsInt16", i, 16)
	return int16(n), err
}

func (s *slot) AsInt32(i int) (int32, error) {
	n, err := s.asInt("AsInt32", i, 32)
	return int32(n), err
}

// AsInt64 returns element i as an int64. Dates convert to their tick
// count and durations to ticks.
func (s *slot) AsInt64(i int) (int64, error) {
	return s.asInt("AsInt64", i, 64)
}

func (s *slot) AsUint8(i int) (uint8, error) {
	n, err := s.asUint("AsUint8", i, 8)
	return uint8(n), err
}

func (s *slot) AsUint16(i int) (uint16, error) {
	n, err := s.asUint("AsUint16", i, 16)
	return uint16(n), err
}

func (s *slot) AsUint32(i int) (uint32, error) {
	n, err := s.asUint("AsUint32", i, 32)
	return uint32(n), err
}

func (s *slot) AsUint64(i int) (uint64, error) {
	return s.asUint("AsUint64", i, 64)
}

func (s *slot) AsFloat32(i int) (float32, error) {
	v, err := s.value("AsFloat32", i, hostFloat)
	if v == nil || err != nil {
		return 0, err
	}
	return toFloat32(v)
}

func (s *slot) AsFloat64(i int) (float64, error) {
	v, err := s.value("AsFloat64", i, hostFloat)
	if v == nil || err != nil {
		return 0, err
	}
	return toFloat64(v)
}

func (s *slot) AsDecimal(i int) (decimal.Decimal, error) {
	v, err := s.value("AsDecimal", i, hostDecimal)
	if v == nil || err != nil {
		return decimal.Zero, err
	}
	return toDecimal(v)
}

func (s *slot) AsTime(i int) (time.Time, error) {
	v, err := s.value("AsTime", i, hostTime)
	if v == nil || err != nil {
		return time.Time{}, err
	}
	return toTime(v)
}

func (s *slot) AsDuration(i int) (time.Duration, error) {
	v, err := s.value("AsDuration", i, hostDuration)
	if v == nil || err != nil {
		return 0, err
	}
	return toDuration(v)
}

func (s *slot) AsUUID(i int) (uuid.UUID, error) {
	v, err := s.value("AsUUID", i, hostUUID)
	if v == nil || err != nil {
		return uuid.Nil, err
	}
	return toUUID(v)
}

func (s *slot) AsString(i int) (string, error) {
	v, err := s.value("AsString", i, hostString)
	if v == nil || err != nil {
		return "", err
	}
	if l, ok := v.(*Lob); ok {
		b, err := l.ReadAll()
		if err != nil {
			return "", err
		}
		return decodeText(s.form, b)
	}
	return toString(v)
}

func (s *slot) AsBytes(i int) ([]byte, error) {
	v, err := s.value("AsBytes", i, hostBytes)
	if v == nil || err != nil {
		return nil, err
	}
	if l, ok := v.(*Lob); ok {
		return l.ReadAll()
	}
	return toBytes(v)
}

// AsLob returns a lazy stream over the LOB held by element i. Nothing is
// read until the stream is used.
func (s *slot) AsLob(i int) (*Lob, error) {
	v, err := s.value("AsLob", i, hostLob)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(*Lob), nil
}

// reader is implemented by every type that exposes typed values by index
type reader interface {
	IsDBNull(i int) (bool, error)
	AsBool(i int) (bool, error)
	AsInt8(i int) (int8, error)
	AsInt16(i int) (int16, error)
	AsInt32(i int) (int32, error)
	AsInt64(i int) (int64, error)
	AsUint8(i int) (uint8, error)
	AsUint16(i int) (uint16, error)
	AsUint32(i int) (uint32, error)
	AsUint64(i int) (uint64, error)
	AsFloat32(i int) (float32, error)
	AsFloat64(i int) (float64, error)
	AsDecimal(i int) (decimal.Decimal, error)
	AsTime(i int) (time.Time, error)
	AsDuration(i int) (time.Duration, error)
	AsUUID(i int) (uuid.UUID, error)
	AsString(i int) (string, error)
	AsBytes(i int) ([]byte, error)
	AsLob(i int) (*Lob, error)
}

// Get reads element i of a Bind or Define, or column i of the current
// cursor row, as T. A null value returns an invalid sql.Null without
// running any conversion.
func Get[T any](r reader, i int) (sql.Null[T], error) {
	var out sql.Null[T]
	null, err := r.IsDBNull(i)
	if err != nil || null {
		return out, err
	}
	var v interface{}
	switch any(out.V).(type) {
	case bool:
		v, err = r.AsBool(i)
	case int8:
		v, err = r.AsInt8(i)
	case int16:
		v, err = r.AsInt16(i)
	case int32:
		v, err = r.AsInt32(i)
	case int64:
		v, err = r.AsInt64(i)
	case int:
		var n int64
		n, err = r.AsInt64(i)
		v = int(n)
	case uint8:
		v, err = r.AsUint8(i)
	case uint16:
		v, err = r.AsUint16(i)
	case uint32:
		v, err = r.AsUint32(i)
	case uint64:
		v, err = r.AsUint64(i)
	case float32:
		v, err = r.AsFloat32(i)
	case float64:
		v, err = r.AsFloat64(i)
	case decimal.Decimal:
		v, err = r.AsDecimal(i)
	case time.Time:
		v, err = r.AsTime(i)
	case time.Duration:
		v, err = r.AsDuration(i)
	case uuid.UUID:
		v, err = r.AsUUID(i)
	case string:
		v, err = r.AsString(i)
	case []byte:
		v, err = r.AsBytes(i)
	case *Lob:
		v, err = r.AsLob(i)
	default:
		return out, &ConversionError{From: "value", To: fmt.Sprintf("%T", out.V), Reason: ReasonMismatch}
	}
	if err != nil {
		return out, err
	}
	out.V, out.Valid = v.(T), true
	return out, nil
}
