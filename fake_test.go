package oci

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// fakeOCI is a scripted in-memory CallInterface. Execute feeds dynamic
// binds through their input providers and then runs onExecute; Fetch
// reports fetchSizes[k] rows for the k-th call and runs onFetch to fill
// the define buffers.
type fakeOCI struct {
	stmtType StatementType
	columns  []ColumnInfo
	rowCount uint64

	onExecute  func(f *fakeOCI, iterations uint32) Status
	onFetch    func(f *fakeOCI, call int, rows uint32)
	fetchSizes []uint32
	// noDataAt is the index of the first Fetch that reports NoData;
	// -1 means never
	noDataAt int

	fail  map[string]Status
	diags []DiagRecord

	binds    []*fakeBind
	defines  []*fakeDefine
	descs    map[Handle]*fakeDesc
	lobs     map[Handle]*fakeLob
	inputs   map[Handle][][]byte // values received from input providers
	calls    map[string]int
	fetched  uint32
	next     Handle
	prefetch uint32
}

type fakeBind struct {
	handle Handle
	params *BindParams
	in     InputProvider
	out    OutputProvider
}

type fakeDefine struct {
	handle Handle
	params *DefineParams
	out    OutputProvider
}

type fakeDesc struct {
	kind   DescriptorKind
	t      time.Time
	d      time.Duration
	months int64
}

type fakeLob struct {
	data []byte
	temp bool
	kind LobKind
}

func newFakeOCI(typ StatementType) *fakeOCI {
	return &fakeOCI{
		stmtType: typ,
		noDataAt: -1,
		fail:     make(map[string]Status),
		descs:    make(map[Handle]*fakeDesc),
		lobs:     make(map[Handle]*fakeLob),
		inputs:   make(map[Handle][][]byte),
		calls:    make(map[string]int),
		next:     0x1000,
	}
}

// newTestStatement wraps a fake statement handle
func newTestStatement(f *fakeOCI, query string, opts ...Option) (*Statement, error) {
	opts = append([]Option{WithLogger(hclog.NewNullLogger())}, opts...)
	return NewStatement(f, Handle(0x42), query, opts...)
}

func (f *fakeOCI) handle() Handle {
	f.next += 0x10
	return f.next
}

// check counts the call and returns an injected failure
func (f *fakeOCI) check(call string) Status {
	f.calls[call]++
	if st, ok := f.fail[call]; ok {
		f.diags = []DiagRecord{{Code: 1722, Message: "ORA-01722: invalid number"}}
		return st
	}
	return StatusSuccess
}

func (f *fakeOCI) BindByPos(stmt Handle, p *BindParams) (Handle, Status) {
	return f.bind("BindByPos", p)
}

func (f *fakeOCI) BindByName(stmt Handle, p *BindParams) (Handle, Status) {
	return f.bind("BindByName", p)
}

func (f *fakeOCI) bind(call string, p *BindParams) (Handle, Status) {
	if st := f.check(call); st != StatusSuccess {
		return NullHandle, st
	}
	for _, b := range f.binds {
		if (p.Name != "" && b.params.Name == p.Name) || (p.Name == "" && b.params.Position == p.Position) {
			b.params = p
			return b.handle, StatusSuccess
		}
	}
	b := &fakeBind{handle: f.handle(), params: p}
	f.binds = append(f.binds, b)
	return b.handle, StatusSuccess
}

func (f *fakeOCI) bindByHandle(h Handle) *fakeBind {
	for _, b := range f.binds {
		if b.handle == h {
			return b
		}
	}
	return nil
}

func (f *fakeOCI) BindDynamic(bind Handle, in InputProvider, out OutputProvider) Status {
	if st := f.check("BindDynamic"); st != StatusSuccess {
		return st
	}
	b := f.bindByHandle(bind)
	if b == nil {
		return StatusInvalidHandle
	}
	b.in, b.out = in, out
	return StatusSuccess
}

func (f *fakeOCI) DefineByPos(stmt Handle, p *DefineParams) (Handle, Status) {
	if st := f.check("DefineByPos"); st != StatusSuccess {
		return NullHandle, st
	}
	d := &fakeDefine{handle: f.handle(), params: p}
	f.defines = append(f.defines, d)
	return d.handle, StatusSuccess
}

func (f *fakeOCI) DefineDynamic(define Handle, out OutputProvider) Status {
	if st := f.check("DefineDynamic"); st != StatusSuccess {
		return st
	}
	for _, d := range f.defines {
		if d.handle == define {
			d.out = out
			return StatusSuccess
		}
	}
	return StatusInvalidHandle
}

// define returns the define registered for a 1-based position
func (f *fakeOCI) define(pos int) *fakeDefine {
	for i := len(f.defines) - 1; i >= 0; i-- {
		if f.defines[i].params.Position == pos {
			return f.defines[i]
		}
	}
	return nil
}

func (f *fakeOCI) Execute(stmt Handle, iterations, rowOffset uint32, mode ExecMode) Status {
	if st := f.check("Execute"); st != StatusSuccess {
		return st
	}
	for _, b := range f.binds {
		if b.in == nil {
			continue
		}
		iters := max(iterations, 1)
		values := make([][]byte, 0, iters)
		for it := uint32(0); it < iters; it++ {
			v, ok := f.pullInput(b.in, it)
			if !ok {
				return StatusError
			}
			values = append(values, v)
		}
		f.inputs[b.handle] = values
	}
	f.fetched = 0
	if f.onExecute != nil {
		return f.onExecute(f, iterations)
	}
	return StatusSuccess
}

// pullInput drains one value from an input provider. A null value is
// returned as nil.
func (f *fakeOCI) pullInput(in InputProvider, iteration uint32) ([]byte, bool) {
	var value []byte
	for {
		p, err := in.ProvideInput(iteration, 0)
		if err != nil {
			f.diags = []DiagRecord{{Message: err.Error()}}
			return nil, false
		}
		if p.Indicator.IsNull() {
			return nil, true
		}
		value = append(value, p.Data...)
		if p.Piece == PieceOne || p.Piece == PieceLast {
			if value == nil {
				value = []byte{}
			}
			return value, true
		}
	}
}

// pushOutput delivers value to an output provider in windows of whatever
// size the provider offers. A nil value is delivered as null.
func pushOutput(out OutputProvider, iteration uint32, value []byte) error {
	hint := PieceFirst
	for {
		p, err := out.ProvideOutput(iteration, 0, hint)
		if err != nil {
			return err
		}
		if value == nil {
			*p.Length = 0
			*p.Indicator = int16(IndicatorNull)
			return nil
		}
		n := copy(p.Buf, value)
		*p.Length = uint32(n)
		value = value[n:]
		if len(value) == 0 {
			return nil
		}
		hint = PieceNext
	}
}

func (f *fakeOCI) Fetch(stmt Handle, rows uint32, orientation FetchOrientation, offset int32) Status {
	if st := f.check("Fetch"); st != StatusSuccess {
		return st
	}
	call := f.calls["Fetch"] - 1
	n := uint32(0)
	if call < len(f.fetchSizes) {
		n = min(f.fetchSizes[call], rows)
	}
	f.fetched = n
	if f.onFetch != nil && n > 0 {
		f.onFetch(f, call, n)
	}
	if f.noDataAt >= 0 && call >= f.noDataAt {
		return StatusNoData
	}
	return StatusSuccess
}

func (f *fakeOCI) RowsFetched(stmt Handle) (uint32, Status) {
	return f.fetched, f.check("RowsFetched")
}

func (f *fakeOCI) RowCount(stmt Handle) (uint64, Status) {
	return f.rowCount, f.check("RowCount")
}

func (f *fakeOCI) StatementType(stmt Handle) (StatementType, Status) {
	return f.stmtType, f.check("StatementType")
}

func (f *fakeOCI) SetPrefetchRows(stmt Handle, rows uint32) Status {
	f.prefetch = rows
	return f.check("SetPrefetchRows")
}

func (f *fakeOCI) DescribeColumns(stmt Handle) ([]ColumnInfo, Status) {
	return f.columns, f.check("DescribeColumns")
}

func (f *fakeOCI) DescriptorAlloc(kind DescriptorKind) (Handle, Status) {
	if st := f.check("DescriptorAlloc"); st != StatusSuccess {
		return NullHandle, st
	}
	h := f.handle()
	f.descs[h] = &fakeDesc{kind: kind}
	if kind == DescriptorLob || kind == DescriptorFile {
		f.lobs[h] = &fakeLob{}
	}
	return h, StatusSuccess
}

func (f *fakeOCI) DescriptorFree(desc Handle, kind DescriptorKind) Status {
	if st := f.check("DescriptorFree"); st != StatusSuccess {
		return st
	}
	if _, ok := f.descs[desc]; !ok {
		return StatusInvalidHandle
	}
	delete(f.descs, desc)
	delete(f.lobs, desc)
	return StatusSuccess
}

func (f *fakeOCI) DateTimeConstruct(desc Handle, t time.Time) Status {
	if st := f.check("DateTimeConstruct"); st != StatusSuccess {
		return st
	}
	f.descs[desc].t = t
	return StatusSuccess
}

func (f *fakeOCI) DateTimeValue(desc Handle) (time.Time, Status) {
	return f.descs[desc].t, f.check("DateTimeValue")
}

func (f *fakeOCI) IntervalSet(desc Handle, kind DescriptorKind, d time.Duration, months int64) Status {
	if st := f.check("IntervalSet"); st != StatusSuccess {
		return st
	}
	f.descs[desc].d, f.descs[desc].months = d, months
	return StatusSuccess
}

func (f *fakeOCI) IntervalValue(desc Handle, kind DescriptorKind) (time.Duration, int64, Status) {
	st := f.check("IntervalValue")
	return f.descs[desc].d, f.descs[desc].months, st
}

func (f *fakeOCI) LobLength(lob Handle) (uint64, Status) {
	st := f.check("LobLength")
	return uint64(len(f.lobs[lob].data)), st
}

func (f *fakeOCI) LobRead(lob Handle, offset uint64, buf []byte) (int, uint64, Status) {
	if st := f.check("LobRead"); st != StatusSuccess {
		return 0, 0, st
	}
	data := f.lobs[lob].data
	if offset < 1 || offset > uint64(len(data)) {
		return 0, 0, StatusNoData
	}
	n := copy(buf, data[offset-1:])
	return n, uint64(n), StatusSuccess
}

func (f *fakeOCI) LobWrite(lob Handle, offset uint64, data []byte) (uint64, Status) {
	if st := f.check("LobWrite"); st != StatusSuccess {
		return 0, st
	}
	l := f.lobs[lob]
	end := int(offset-1) + len(data)
	if end > len(l.data) {
		l.data = append(l.data, make([]byte, end-len(l.data))...)
	}
	copy(l.data[offset-1:], data)
	return uint64(len(data)), StatusSuccess
}

func (f *fakeOCI) LobTrim(lob Handle, length uint64) Status {
	if st := f.check("LobTrim"); st != StatusSuccess {
		return st
	}
	l := f.lobs[lob]
	if length < uint64(len(l.data)) {
		l.data = l.data[:length]
	}
	return StatusSuccess
}

func (f *fakeOCI) LobCreateTemporary(lob Handle, kind LobKind) Status {
	if st := f.check("LobCreateTemporary"); st != StatusSuccess {
		return st
	}
	f.lobs[lob] = &fakeLob{temp: true, kind: kind}
	return StatusSuccess
}

func (f *fakeOCI) LobFreeTemporary(lob Handle) Status {
	if st := f.check("LobFreeTemporary"); st != StatusSuccess {
		return st
	}
	f.lobs[lob].temp = false
	return StatusSuccess
}

func (f *fakeOCI) Diagnostics() []DiagRecord {
	return f.diags
}

// putLobData stores data in the LOB whose locator is held by element row
// of a define
func (f *fakeOCI) putLobData(d *fakeDefine, row int, data []byte) {
	h := getHandle(d.params.Data[row*d.params.ElemSize:])
	f.lobs[h].data = data
}
