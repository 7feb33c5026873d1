package oci

import "fmt"

// Define is an output buffer attached to one select-list item. It holds
// one element per row of the fetch batch; the typed accessors take the
// row index within the current batch.
type Define struct {
	*slot
	position int
	handle   Handle
	info     ColumnInfo
}

// Position returns the 1-based select-list position
func (d *Define) Position() int { return d.position }

// Handle returns the library's define handle
func (d *Define) Handle() Handle { return d.handle }

// Column returns the described metadata of the define's column
func (d *Define) Column() ColumnInfo { return d.info }

func newDefine(s *Statement, pos int, info ColumnInfo, wt WireType, size int, kind SlotKind, form CharsetForm) (*Define, error) {
	op := "Define"
	if kind == KindDynamic {
		op = "DefineDynamic"
	}
	c, err := newCodec(op, wt, size, kind == KindDynamic)
	if err != nil {
		return nil, err
	}
	rows := s.opts.ArraySize
	if kind == KindScalar && rows > 1 {
		kind = KindArray
	}
	sl, err := newSlot(s, c, kind, rows, form, fmt.Sprintf("column %d", pos))
	if err != nil {
		return nil, err
	}
	d := &Define{slot: sl, position: pos, info: info}
	if err := d.register(); err != nil {
		return nil, err
	}
	s.logger.Debug("define created", "position", pos, "wire", wt, "kind", kind, "rows", rows)
	return d, nil
}

func (d *Define) register() error {
	s := d.stmt
	params := &DefineParams{
		Position:    d.position,
		WireType:    d.codec.wire,
		Data:        d.col.data,
		ElemSize:    d.codec.width,
		Indicators:  d.col.ind,
		ReturnCodes: d.col.codes,
		CharsetForm: d.form,
		Dynamic:     d.kind == KindDynamic,
	}
	if d.codec.lengthArray() {
		params.Lengths = d.col.lengths
	}
	h, st := s.lib.DefineByPos(s.handle, params)
	if err := checkStatus(s.lib, "OCIDefineByPos", st); err != nil {
		return err
	}
	d.handle = h
	if d.kind == KindDynamic {
		if err := checkStatus(s.lib, "OCIDefineDynamic", s.lib.DefineDynamic(h, d.pw)); err != nil {
			return err
		}
	}
	s.logger.Trace("define registered", "position", d.position, "elem_size", d.codec.width, "rows", d.col.len())
	return nil
}

func (d *Define) beforeFetch() {
	d.col.reset()
	if d.pw != nil {
		d.pw.beginOutput()
	}
}

func (d *Define) afterFetch() error {
	if d.pw != nil {
		return d.pw.finishOutput()
	}
	return nil
}

// defineStrategy picks the wire type, size, transfer kind and character
// set form used to fetch a described column
func defineStrategy(col ColumnInfo, opts Options) (WireType, int, SlotKind, CharsetForm) {
	form := col.CharsetForm
	if form == 0 {
		form = CharsetImplicit
	}
	switch col.DataType {
	case TypeNumber:
		if col.Scale == 0 && col.Precision > 0 && col.Precision <= 18 {
			return WireInt, 8, KindScalar, form
		}
		return WireVarNum, varNumLen, KindScalar, form
	case TypeBinaryFloat:
		return WireBFloat, 4, KindScalar, form
	case TypeBinaryDouble:
		return WireBDouble, 8, KindScalar, form
	case TypeVarchar2, TypeChar:
		size := col.Size
		if form == CharsetNChar && col.CharSize > 0 {
			size = col.CharSize * 4
		}
		if size <= 0 {
			size = opts.StringSize
		}
		return WireVarChar, min(size, maxVarSize), KindScalar, form
	case TypeRaw:
		size := col.Size
		if size <= 0 {
			size = opts.BinarySize
		}
		return WireVarRaw, min(size, maxVarSize), KindScalar, form
	case TypeDate:
		return WireDate, 0, KindScalar, form
	case TypeTimestamp:
		return WireTimestamp, 0, KindScalar, form
	case TypeTimestampTZ:
		return WireTimestampTZ, 0, KindScalar, form
	case TypeTimestampLTZ:
		return WireTimestampLTZ, 0, KindScalar, form
	case TypeIntervalDS:
		return WireIntervalDS, 0, KindScalar, form
	case TypeIntervalYM:
		return WireIntervalYM, 0, KindScalar, form
	case TypeClob:
		return WireClob, 0, KindScalar, form
	case TypeBlob:
		return WireBlob, 0, KindScalar, form
	case TypeBFile:
		return WireBFile, 0, KindScalar, form
	case TypeLong:
		return WireLong, 0, KindDynamic, form
	case TypeLongRaw:
		return WireLongRaw, 0, KindDynamic, form
	default:
		return WireVarChar, opts.StringSize, KindScalar, form
	}
}
