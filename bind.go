package oci

import (
	"fmt"
	"io"
)

// Placeholder addresses a bind parameter by 1-based position or by name
type Placeholder struct {
	pos  int
	name string
}

// ByPos addresses the n-th placeholder (1-based)
func ByPos(n int) Placeholder { return Placeholder{pos: n} }

// ByName addresses a named placeholder; the leading colon is optional
func ByName(name string) Placeholder { return Placeholder{name: name} }

func (p Placeholder) String() string {
	if p.name != "" {
		return ":" + normalizeName(p.name)
	}
	return fmt.Sprintf("#%d", p.pos)
}

// Bind is a parameter attached to a statement. A scalar bind holds one
// value, an array bind one value per iteration (or per PL/SQL table
// element) and a dynamic bind transfers its values piecewise.
//
// The typed accessors inherited from the element store read values back,
// which is how OUT parameters are retrieved after Execute.
type Bind struct {
	*slot
	ph     Placeholder
	handle Handle
	array  bool
	plsql  bool
	curLen uint32
	maxLen uint32
	dirty  bool
}

// Bind attaches a scalar parameter. size is the maximum value width for
// text and binary wire types.
func (s *Statement) Bind(p Placeholder, wt WireType, size int) (*Bind, error) {
	return s.newBind("Bind", p, wt, size, KindScalar, 1, CharsetImplicit)
}

// BindNChar attaches a scalar national character parameter
func (s *Statement) BindNChar(p Placeholder, wt WireType, size int) (*Bind, error) {
	return s.newBind("BindNChar", p, wt, size, KindScalar, 1, CharsetNChar)
}

// BindArray attaches an array parameter of n elements, all null. For DML
// each element feeds one iteration; for PL/SQL blocks the array binds to
// an associative array.
func (s *Statement) BindArray(p Placeholder, wt WireType, size, n int) (*Bind, error) {
	if n < 0 || n > maxArraySize {
		return nil, argumentError("BindArray", p.String(), "array length %d outside [0,%d]", n, maxArraySize)
	}
	return s.newBind("BindArray", p, wt, size, KindArray, n, CharsetImplicit)
}

// BindDynamic attaches a parameter whose value is transferred in pieces
// during Execute. wt must be a text or binary wire type, typically
// WireLong or WireLongRaw.
func (s *Statement) BindDynamic(p Placeholder, wt WireType) (*Bind, error) {
	return s.newBind("BindDynamic", p, wt, 0, KindDynamic, 1, CharsetImplicit)
}

// BindValue attaches a scalar parameter whose wire type is inferred from
// v, and assigns v to it.
func (s *Statement) BindValue(p Placeholder, v interface{}) (*Bind, error) {
	wt, size, err := inferWireType(v)
	if err != nil {
		return nil, err
	}
	b, err := s.newBind("BindValue", p, wt, size, KindScalar, 1, CharsetImplicit)
	if err != nil {
		return nil, err
	}
	if err := b.Assign(v); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Statement) newBind(op string, p Placeholder, wt WireType, size int, kind SlotKind, n int, form CharsetForm) (*Bind, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	if err := s.validatePlaceholder(op, p); err != nil {
		return nil, err
	}
	c, err := newCodec(op, wt, size, kind == KindDynamic)
	if err != nil {
		return nil, err
	}
	typ, err := s.StatementType()
	if err != nil {
		return nil, err
	}
	sl, err := newSlot(s, c, kind, n, form, p.String())
	if err != nil {
		return nil, err
	}
	b := &Bind{
		slot:  sl,
		ph:    p,
		array: kind == KindArray,
		plsql: kind == KindArray && typ.IsPLSQL(),
		dirty: true,
	}
	if err := b.register(); err != nil {
		return nil, err
	}
	s.binds = append(s.binds, b)
	s.logger.Debug("bind created", "placeholder", b.label, "wire", wt, "kind", kind, "elements", n)
	return b, nil
}

// validatePlaceholder rejects positions and names that the statement text
// does not contain
func (s *Statement) validatePlaceholder(op string, p Placeholder) error {
	if p.name == "" {
		if p.pos < 1 {
			return argumentError(op, p.String(), "position must be positive")
		}
		if p.pos > maxParameters {
			return argumentError(op, p.String(), "position exceeds maximum %d", maxParameters)
		}
		if p.pos > s.placeholders.Count {
			return argumentError(op, p.String(), "statement has %d placeholders", s.placeholders.Count)
		}
	} else if !s.placeholders.Has(p.name) {
		return argumentError(op, p.String(), "no such placeholder")
	}
	for _, b := range s.binds {
		if b.ph.pos == p.pos && (p.name == "" || normalizeName(b.ph.name) == normalizeName(p.name)) {
			return argumentError(op, p.String(), "placeholder already bound")
		}
	}
	return nil
}

// register hands the element store to the library when it is new or its
// buffers moved
func (b *Bind) register() error {
	if !b.dirty {
		return nil
	}
	s := b.stmt
	params := &BindParams{
		Position:    b.ph.pos,
		Name:        b.ph.name,
		WireType:    b.codec.wire,
		Data:        b.col.data,
		ElemSize:    b.codec.width,
		Indicators:  b.col.ind,
		ReturnCodes: b.col.codes,
		CharsetForm: b.form,
		Dynamic:     b.kind == KindDynamic,
	}
	if b.codec.lengthArray() {
		params.Lengths = b.col.lengths
	}
	if b.plsql {
		b.maxLen = uint32(max(b.col.len(), 1))
		b.curLen = uint32(b.col.len())
		params.MaxArrayLen = b.maxLen
		params.CurArrayLen = &b.curLen
	}
	var (
		h    Handle
		st   Status
		call string
	)
	if b.ph.name != "" {
		params.Name = ":" + normalizeName(b.ph.name)
		h, st = s.lib.BindByName(s.handle, params)
		call = "OCIBindByName"
	} else {
		h, st = s.lib.BindByPos(s.handle, params)
		call = "OCIBindByPos"
	}
	if err := checkStatus(s.lib, call, st); err != nil {
		return err
	}
	b.handle = h
	if b.kind == KindDynamic {
		if err := checkStatus(s.lib, "OCIBindDynamic", s.lib.BindDynamic(h, b.pw, b.pw)); err != nil {
			return err
		}
	}
	b.dirty = false
	s.logger.Trace("bind registered", "call", call, "placeholder", b.label, "elem_size", b.codec.width, "elements", b.col.len())
	return nil
}

func (b *Bind) beforeExecute() {
	if b.plsql {
		b.curLen = uint32(b.col.len())
	}
	if b.pw != nil {
		b.pw.beginOutput()
	}
}

func (b *Bind) afterExecute() error {
	if b.pw == nil {
		return nil
	}
	if err := b.pw.finishInput(); err != nil {
		return err
	}
	return b.pw.finishOutput()
}

// Handle returns the library's bind handle
func (b *Bind) Handle() Handle { return b.handle }

// Placeholder returns the placeholder the bind is attached to
func (b *Bind) Placeholder() Placeholder { return b.ph }

// Assign converts v and stores it as the first element. A nil v sets the
// element null. On error the element is unchanged.
func (b *Bind) Assign(v interface{}) error {
	return b.assign("Assign", 0, v)
}

// AssignAt converts v and stores it as element i, clearing its null
// indicator
func (b *Bind) AssignAt(i int, v interface{}) error {
	return b.assign("AssignAt", i, v)
}

// SetDBNull marks the first element null
func (b *Bind) SetDBNull() error {
	return b.setNull("SetDBNull", 0)
}

// SetDBNullAt marks element i null
func (b *Bind) SetDBNullAt(i int) error {
	return b.setNull("SetDBNullAt", i)
}

// Append grows an array bind by one element holding v. On error the
// array is unchanged.
func (b *Bind) Append(v interface{}) error {
	if err := b.stmt.checkOpen("Append"); err != nil {
		return err
	}
	if !b.array {
		return &StateError{Op: "Append", State: "bind " + b.label + " is not an array"}
	}
	n := b.col.len()
	if err := b.Resize(n + 1); err != nil {
		return err
	}
	if err := b.assign("Append", n, v); err != nil {
		if rerr := b.Resize(n); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// Resize sets the number of elements of an array or dynamic bind. New
// elements are null.
func (b *Bind) Resize(n int) error {
	if err := b.stmt.checkOpen("Resize"); err != nil {
		return err
	}
	if b.kind == KindScalar {
		return &StateError{Op: "Resize", State: "bind " + b.label + " is scalar"}
	}
	if n < 0 || n > maxArraySize {
		return argumentError("Resize", b.label, "array length %d outside [0,%d]", n, maxArraySize)
	}
	if n == b.col.len() {
		return nil
	}
	if err := b.resize(n); err != nil {
		return err
	}
	b.dirty = true
	b.stmt.logger.Debug("bind resized", "placeholder", b.label, "elements", n)
	return nil
}

// ActualArrayLength returns the number of elements that will be sent
func (b *Bind) ActualArrayLength() int {
	return b.col.len()
}

// IsArray reports whether the bind is an array bind
func (b *Bind) IsArray() bool { return b.array }

// SetReader streams the first element's value from r during the next
// Execute. Only dynamic binds accept readers.
func (b *Bind) SetReader(r io.Reader) error {
	return b.SetReaderAt(0, r)
}

// SetReaderAt streams element i's value from r during the next Execute
func (b *Bind) SetReaderAt(i int, r io.Reader) error {
	if err := b.check("SetReaderAt", i); err != nil {
		return err
	}
	if b.pw == nil {
		return &StateError{Op: "SetReaderAt", State: "bind " + b.label + " is not dynamic"}
	}
	if r == nil {
		b.col.setNull(i)
		b.pw.setValue(i, nil)
		return nil
	}
	b.pw.setReader(i, r)
	b.col.ind[i] = int16(IndicatorNotNull)
	return nil
}
