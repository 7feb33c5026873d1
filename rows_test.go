package oci

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var testColumns = []ColumnInfo{
	{Name: "ID", DataType: TypeNumber, Precision: 10},
	{Name: "NAME", DataType: TypeVarchar2, Size: 20, Nullable: true},
}

// putInt writes an INT value into row r of the define at pos
func putInt(f *fakeOCI, pos, r int, v int64) {
	p := f.define(pos).params
	putUint(p.Data[r*p.ElemSize:(r+1)*p.ElemSize], uint64(v))
	p.Indicators[r] = int16(IndicatorNotNull)
}

// putText writes a VARCHAR value into row r of the define at pos
func putText(f *fakeOCI, pos, r int, s string) {
	p := f.define(pos).params
	elem := p.Data[r*p.ElemSize : (r+1)*p.ElemSize]
	binary.NativeEndian.PutUint16(elem, uint16(len(s)))
	copy(elem[2:], s)
	p.Indicators[r] = int16(IndicatorNotNull)
}

func newQuery(t *testing.T, f *fakeOCI, opts ...Option) (*Statement, *RowCursor) {
	t.Helper()
	s := mustStatement(t, f, "SELECT id, name FROM people", opts...)
	c, err := s.ExecuteReader()
	if err != nil {
		t.Fatalf("ExecuteReader: %v", err)
	}
	return s, c
}

// =============================================================================
// Batch Fetch Tests (rows.go)
// =============================================================================

func TestRowCursor_Batches(t *testing.T) {
	tests := []struct {
		name     string
		sizes    []uint32
		noDataAt int
		rows     int
		fetches  int
	}{
		{"short last batch", []uint32{3, 3, 1}, 2, 7, 3},
		{"empty last batch", []uint32{3, 3, 0}, 2, 6, 3},
		{"exact batches", []uint32{3, 3, 3, 0}, 3, 9, 4},
		{"no rows", nil, 0, 0, 1},
		{"zero rows without end of data", []uint32{2}, -1, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeOCI(StmtSelect)
			f.columns = testColumns
			f.fetchSizes = tt.sizes
			f.noDataAt = tt.noDataAt
			f.onFetch = func(f *fakeOCI, call int, rows uint32) {
				for r := 0; r < int(rows); r++ {
					putInt(f, 1, r, int64(call*3+r+1))
				}
			}
			_, c := newQuery(t, f, WithArraySize(3))

			var ids []int64
			for {
				ok, err := c.Read()
				if err != nil {
					t.Fatalf("Read: %v", err)
				}
				if !ok {
					break
				}
				id, err := c.AsInt64(0)
				if err != nil {
					t.Fatalf("AsInt64: %v", err)
				}
				ids = append(ids, id)
			}

			if len(ids) != tt.rows || c.RowsRead() != int64(tt.rows) {
				t.Errorf("expected %d rows, got %d (RowsRead %d)", tt.rows, len(ids), c.RowsRead())
			}
			for i, id := range ids {
				if id != int64(i+1) {
					t.Errorf("row %d: expected id %d, got %d", i, i+1, id)
				}
			}
			if c.Fetches() != tt.fetches || f.calls["Fetch"] != tt.fetches {
				t.Errorf("expected %d fetches, got %d/%d", tt.fetches, c.Fetches(), f.calls["Fetch"])
			}
			if c.State() != Exhausted || !c.NoMoreData() {
				t.Errorf("expected exhausted cursor, got %s", c.State())
			}
			// further reads neither fail nor fetch
			if ok, err := c.Read(); ok || err != nil {
				t.Errorf("expected false, nil after exhaustion, got %v, %v", ok, err)
			}
			if f.calls["Fetch"] != tt.fetches {
				t.Error("Read fetched after exhaustion")
			}
		})
	}
}

func TestRowCursor_ReadValues(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{2}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		putInt(f, 1, 0, 1)
		putText(f, 2, 0, "alice")
		putInt(f, 1, 1, 2)
	}
	_, c := newQuery(t, f, WithArraySize(2))

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	dest := make([]interface{}, 2)
	if err := c.Values(dest); err != nil {
		t.Fatalf("Values: %v", err)
	}
	if diff := cmp.Diff([]interface{}{int64(1), "alice"}, dest); diff != "" {
		t.Errorf("row 0 mismatch (-want +got):\n%s", diff)
	}
	if c.CurrentRow() != 0 || c.RowsFetchedThisBatch() != 2 {
		t.Errorf("unexpected position %d of %d", c.CurrentRow(), c.RowsFetchedThisBatch())
	}

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	if null, _ := c.IsDBNull(1); !null {
		t.Error("expected NAME null in row 1")
	}
	if s, err := c.AsString(1); s != "" || err != nil {
		t.Errorf("expected empty string without error, got %q, %v", s, err)
	}
	name, err := Get[string](c, 1)
	if err != nil || name.Valid {
		t.Errorf("expected invalid Null, got %+v, %v", name, err)
	}
	id, err := Get[int32](c, 0)
	if err != nil || !id.Valid || id.V != 2 {
		t.Errorf("expected 2, got %+v, %v", id, err)
	}

	if ok, err := c.Read(); ok || err != nil {
		t.Errorf("expected end of rows, got %v, %v", ok, err)
	}
}

func TestRowCursor_ImplicitDefines(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.noDataAt = 0
	_, c := newQuery(t, f, WithArraySize(3))

	if c.DefineAt(0) != nil || len(f.defines) != 0 {
		t.Fatal("columns defined before the first Read")
	}
	if _, err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(f.defines) != 2 {
		t.Fatalf("expected 2 defines, got %d", len(f.defines))
	}
	id := f.define(1).params
	if id.WireType != WireInt || id.ElemSize != 8 || id.Lengths != nil || len(id.Indicators) != 3 {
		t.Errorf("unexpected ID define %+v", id)
	}
	name := f.define(2).params
	if name.WireType != WireVarChar || name.ElemSize != 22 || len(name.Lengths) != 3 {
		t.Errorf("unexpected NAME define %+v", name)
	}
	if d := c.DefineAt(1); d == nil || d.Kind() != KindArray || d.Column().Name != "NAME" {
		t.Errorf("unexpected define for NAME: %+v", d)
	}
}

func TestRowCursor_ExplicitDefine(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{1}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		putInt(f, 1, 0, 5)
		putText(f, 2, 0, "a longer name than described")
	}
	_, c := newQuery(t, f)

	d, err := c.Define(2, WireVarChar, 40)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if f.define(2).params.ElemSize != 42 || d.Position() != 2 || d.Handle() != f.define(2).handle {
		t.Errorf("unexpected define registration %+v", f.define(2).params)
	}
	if _, err := c.Define(2, WireVarChar, 40); !errors.Is(err, ErrArgument) {
		t.Errorf("expected ArgumentError for a second define, got %v", err)
	}
	for _, pos := range []int{0, 3} {
		if _, err := c.Define(pos, WireInt, 8); !errors.Is(err, ErrArgument) {
			t.Errorf("position %d: expected ArgumentError, got %v", pos, err)
		}
	}

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	if s, _ := c.AsString(1); s != "a longer name than described" {
		t.Errorf("unexpected value %q", s)
	}
	if len(f.defines) != 2 {
		t.Errorf("expected the explicit define to be kept, got %d defines", len(f.defines))
	}
	if _, err := c.Define(1, WireInt, 8); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError after Read, got %v", err)
	}
}

func TestRowCursor_TruncationAndReturnCodes(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{1}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		putInt(f, 1, 0, 1)
		putText(f, 2, 0, "truncated")
		p := f.define(2).params
		p.Indicators[0] = 30
		p.ReturnCodes[0] = 1406
	}
	_, c := newQuery(t, f)
	if _, err := c.Define(2, WireVarChar, 9); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if _, err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if tr, _ := c.Truncated(1); !tr {
		t.Error("expected NAME truncated")
	}
	if tr, _ := c.Truncated(0); tr {
		t.Error("unexpected truncation of ID")
	}
	if code, _ := c.ReturnCode(1); code != 1406 {
		t.Errorf("expected return code 1406, got %d", code)
	}
	if null, _ := c.IsDBNull(1); null {
		t.Error("a truncated value is not null")
	}
	if s, _ := c.AsString(1); s != "truncated" {
		t.Errorf("expected the truncated prefix, got %q", s)
	}
}

func TestRowCursor_NumberColumn(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = []ColumnInfo{{Name: "PRICE", DataType: TypeNumber, Precision: 10, Scale: 2}}
	f.fetchSizes = []uint32{1}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		p := f.define(1).params
		if err := encodeVarNum(p.Data[:p.ElemSize], decimal.RequireFromString("19.99")); err != nil {
			panic(err)
		}
		p.Indicators[0] = 0
	}
	s := mustStatement(t, f, "SELECT price FROM items")
	c, err := s.ExecuteReader()
	if err != nil {
		t.Fatalf("ExecuteReader: %v", err)
	}
	if _, err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	d, err := c.AsDecimal(0)
	if err != nil || !d.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("expected 19.99, got %s, %v", d, err)
	}
	if _, err := c.AsInt64(0); conversionReason(t, err) != ReasonTruncation {
		t.Errorf("expected truncation, got %v", err)
	}
	if v, err := c.AsString(0); err != nil || v != "19.99" {
		t.Errorf("expected 19.99, got %q, %v", v, err)
	}
}

// =============================================================================
// Cursor State Tests (rows.go, stmt.go)
// =============================================================================

func TestRowCursor_StateErrors(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{1}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		putInt(f, 1, 0, 1)
	}
	_, c := newQuery(t, f)

	if _, err := c.AsInt64(0); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError before Read, got %v", err)
	}
	if _, err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, idx := range []int{-1, 2} {
		if _, err := c.AsInt64(idx); !errors.Is(err, ErrArgument) {
			t.Errorf("index %d: expected ArgumentError, got %v", idx, err)
		}
	}
	if _, err := c.AsTime(0); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected NotImplementedError, got %v", err)
	}
	if ok, _ := c.Read(); ok {
		t.Fatal("expected end of rows")
	}
	if _, err := c.AsInt64(0); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError after exhaustion, got %v", err)
	}
}

func TestStatement_ExecuteReaderRequiresQuery(t *testing.T) {
	f := newFakeOCI(StmtInsert)
	s := mustStatement(t, f, "INSERT INTO t VALUES (1)")
	if _, err := s.ExecuteReader(); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError, got %v", err)
	}
	if f.calls["Execute"] != 0 {
		t.Error("statement executed")
	}
}

func TestRowCursor_ReplacedByNewExecution(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.noDataAt = 0
	s, first := newQuery(t, f)

	second, err := s.ExecuteReader()
	if err != nil {
		t.Fatalf("ExecuteReader: %v", err)
	}
	if _, err := first.Read(); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError from the replaced cursor, got %v", err)
	}
	if ok, err := second.Read(); ok || err != nil {
		t.Errorf("expected an empty result, got %v, %v", ok, err)
	}
}

func TestRowCursor_ReexecutionFreesDescriptors(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = []ColumnInfo{{Name: "CREATED", DataType: TypeTimestamp}}
	f.noDataAt = 0
	s := mustStatement(t, f, "SELECT created FROM events", WithArraySize(100))

	var first *Define
	for i := 0; i < 5; i++ {
		c, err := s.ExecuteReader()
		if err != nil {
			t.Fatalf("ExecuteReader %d: %v", i, err)
		}
		if _, err := c.Read(); err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if i == 0 {
			first = c.DefineAt(0)
		}
		if len(f.descs) != 100 {
			t.Errorf("execution %d: expected 100 live descriptors, got %d", i, len(f.descs))
		}
	}
	if f.calls["DescriptorFree"] != 400 {
		t.Errorf("expected 400 descriptors freed, got %d", f.calls["DescriptorFree"])
	}
	if _, err := first.AsTime(0); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError from a released define, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.descs) != 0 {
		t.Errorf("expected every descriptor freed on Close, got %d", len(f.descs))
	}
}

func TestRowCursor_ExecuteDetachesCursor(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{2}
	s, c := newQuery(t, f, WithArraySize(3))
	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}

	if _, err := s.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := c.Read(); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError after Execute, got %v", err)
	}
	if _, err := c.AsInt64(0); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError from an accessor, got %v", err)
	}
}

func TestDefine_RowsBoundedByBatch(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fetchSizes = []uint32{2}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		putInt(f, 1, 0, 10)
		putInt(f, 1, 1, 20)
	}
	_, c := newQuery(t, f, WithArraySize(3))
	d, err := c.Define(1, WireInt, 8)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if _, err := d.AsInt64(0); !errors.Is(err, ErrArgument) {
		t.Errorf("expected ArgumentError before the first fetch, got %v", err)
	}

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	if v, err := d.AsInt64(1); err != nil || v != 20 {
		t.Errorf("row 1: expected 20, got %d, %v", v, err)
	}
	if _, err := d.AsInt64(2); !errors.Is(err, ErrArgument) {
		t.Errorf("expected ArgumentError for a row past the batch, got %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("expected the buffer to keep 3 rows, got %d", d.Len())
	}
}

func TestRowCursor_StatementClosed(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	s, c := newQuery(t, f)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Read(); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError, got %v", err)
	}
	if _, err := c.Define(1, WireInt, 8); !errors.Is(err, ErrState) {
		t.Errorf("expected StateError, got %v", err)
	}
}

func TestRowCursor_FetchFailure(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	f.fail["Fetch"] = StatusError
	_, c := newQuery(t, f)

	_, err := c.Read()
	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if ce.Call != "OCIStmtFetch2" || ce.Code() != 1722 {
		t.Errorf("unexpected error %+v", ce)
	}
	if c.State() != Exhausted {
		t.Errorf("expected exhausted cursor, got %s", c.State())
	}
	if ok, err := c.Read(); ok || err != nil {
		t.Errorf("expected false, nil after a failed fetch, got %v, %v", ok, err)
	}
}

func TestRowCursor_Prefetch(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	newQuery(t, f)
	if f.calls["SetPrefetchRows"] != 0 {
		t.Error("prefetch set without being configured")
	}

	f = newFakeOCI(StmtSelect)
	f.columns = testColumns
	newQuery(t, f, WithPrefetchRows(50))
	if f.prefetch != 50 {
		t.Errorf("expected prefetch 50, got %d", f.prefetch)
	}
}

func TestRowCursor_Metadata(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = testColumns
	_, c := newQuery(t, f)

	if diff := cmp.Diff([]string{"ID", "NAME"}, c.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if c.NumColumns() != 2 {
		t.Errorf("expected 2 columns, got %d", c.NumColumns())
	}
	if info, ok := c.ColumnInfo(1); !ok || info.Size != 20 {
		t.Errorf("unexpected column info %+v", info)
	}
	if _, ok := c.ColumnInfo(2); ok {
		t.Error("expected no info past the select list")
	}

	if got := c.ColumnTypeScanType(0); got != reflect.TypeOf(int64(0)) {
		t.Errorf("expected int64 scan type, got %v", got)
	}
	if got := c.ColumnTypeScanType(1); got != reflect.TypeOf("") {
		t.Errorf("expected string scan type, got %v", got)
	}
	if got := c.ColumnTypeDatabaseTypeName(0); got != "NUMBER" {
		t.Errorf("expected NUMBER, got %q", got)
	}
	if n, ok := c.ColumnTypeLength(1); !ok || n != 20 {
		t.Errorf("expected length 20, got %d, %v", n, ok)
	}
	if _, ok := c.ColumnTypeLength(0); ok {
		t.Error("NUMBER has no length")
	}
	if nullable, ok := c.ColumnTypeNullable(1); !ok || !nullable {
		t.Error("expected NAME nullable")
	}
	if p, s, ok := c.ColumnTypePrecisionScale(0); !ok || p != 10 || s != 0 {
		t.Errorf("expected NUMBER(10,0), got %d,%d,%v", p, s, ok)
	}
	if _, _, ok := c.ColumnTypePrecisionScale(1); ok {
		t.Error("VARCHAR2 has no precision")
	}
}

// =============================================================================
// Define Strategy Tests (define.go)
// =============================================================================

func TestDefineStrategy(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		name string
		col  ColumnInfo
		wire WireType
		size int
		kind SlotKind
		form CharsetForm
	}{
		{"integer number", ColumnInfo{DataType: TypeNumber, Precision: 10}, WireInt, 8, KindScalar, CharsetImplicit},
		{"wide integer", ColumnInfo{DataType: TypeNumber, Precision: 20}, WireVarNum, varNumLen, KindScalar, CharsetImplicit},
		{"scaled number", ColumnInfo{DataType: TypeNumber, Precision: 10, Scale: 2}, WireVarNum, varNumLen, KindScalar, CharsetImplicit},
		{"unconstrained number", ColumnInfo{DataType: TypeNumber}, WireVarNum, varNumLen, KindScalar, CharsetImplicit},
		{"binary double", ColumnInfo{DataType: TypeBinaryDouble}, WireBDouble, 8, KindScalar, CharsetImplicit},
		{"varchar2", ColumnInfo{DataType: TypeVarchar2, Size: 20}, WireVarChar, 20, KindScalar, CharsetImplicit},
		{"undescribed varchar2", ColumnInfo{DataType: TypeVarchar2}, WireVarChar, 4000, KindScalar, CharsetImplicit},
		{"nvarchar2", ColumnInfo{DataType: TypeVarchar2, Size: 20, CharSize: 10, CharsetForm: CharsetNChar}, WireVarChar, 40, KindScalar, CharsetNChar},
		{"char", ColumnInfo{DataType: TypeChar, Size: 3}, WireVarChar, 3, KindScalar, CharsetImplicit},
		{"raw", ColumnInfo{DataType: TypeRaw, Size: 16}, WireVarRaw, 16, KindScalar, CharsetImplicit},
		{"undescribed raw", ColumnInfo{DataType: TypeRaw}, WireVarRaw, 2000, KindScalar, CharsetImplicit},
		{"date", ColumnInfo{DataType: TypeDate}, WireDate, 0, KindScalar, CharsetImplicit},
		{"timestamp tz", ColumnInfo{DataType: TypeTimestampTZ}, WireTimestampTZ, 0, KindScalar, CharsetImplicit},
		{"interval", ColumnInfo{DataType: TypeIntervalDS}, WireIntervalDS, 0, KindScalar, CharsetImplicit},
		{"clob", ColumnInfo{DataType: TypeClob}, WireClob, 0, KindScalar, CharsetImplicit},
		{"long", ColumnInfo{DataType: TypeLong}, WireLong, 0, KindDynamic, CharsetImplicit},
		{"long raw", ColumnInfo{DataType: TypeLongRaw}, WireLongRaw, 0, KindDynamic, CharsetImplicit},
		{"unknown", ColumnInfo{DataType: 999}, WireVarChar, 4000, KindScalar, CharsetImplicit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, size, kind, form := defineStrategy(tt.col, opts)
			if wire != tt.wire || size != tt.size || kind != tt.kind || form != tt.form {
				t.Errorf("expected %s/%d/%s/%d, got %s/%d/%s/%d",
					tt.wire, tt.size, tt.kind, tt.form, wire, size, kind, form)
			}
		})
	}
}

// =============================================================================
// Piecewise and LOB Define Tests (rows.go, define.go)
// =============================================================================

func TestRowCursor_DynamicLong(t *testing.T) {
	body := bytes.Repeat([]byte("long column "), 20)
	f := newFakeOCI(StmtSelect)
	f.columns = []ColumnInfo{{Name: "BODY", DataType: TypeLong}}
	f.fetchSizes = []uint32{2}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		out := f.define(1).out
		if err := pushOutput(out, 0, body); err != nil {
			panic(err)
		}
		if err := pushOutput(out, 1, nil); err != nil {
			panic(err)
		}
	}
	s := mustStatement(t, f, "SELECT body FROM docs", WithArraySize(2), WithPieceSize(16))
	c, err := s.ExecuteReader()
	if err != nil {
		t.Fatalf("ExecuteReader: %v", err)
	}

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	p := f.define(1).params
	if !p.Dynamic || p.WireType != WireLong {
		t.Errorf("expected a dynamic LONG define, got %+v", p)
	}
	got, err := c.AsBytes(0)
	if err != nil {
		t.Fatalf("AsBytes: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("expected %d bytes, got %d", len(body), len(got))
	}

	if ok, err := c.Read(); !ok || err != nil {
		t.Fatalf("Read: %v, %v", ok, err)
	}
	if null, _ := c.IsDBNull(0); !null {
		t.Error("expected row 1 null")
	}
}

func TestRowCursor_ClobColumn(t *testing.T) {
	f := newFakeOCI(StmtSelect)
	f.columns = []ColumnInfo{{Name: "DOC", DataType: TypeClob}}
	f.fetchSizes = []uint32{1}
	f.noDataAt = 0
	f.onFetch = func(f *fakeOCI, call int, rows uint32) {
		d := f.define(1)
		f.putLobData(d, 0, []byte("lob text"))
		d.params.Indicators[0] = 0
	}
	s := mustStatement(t, f, "SELECT doc FROM docs")
	c, err := s.ExecuteReader()
	if err != nil {
		t.Fatalf("ExecuteReader: %v", err)
	}
	if _, err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if v, err := c.AsString(0); err != nil || v != "lob text" {
		t.Errorf("expected lob text, got %q, %v", v, err)
	}
	lob, err := c.AsLob(0)
	if err != nil {
		t.Fatalf("AsLob: %v", err)
	}
	if n, err := lob.Len(); err != nil || n != 8 {
		t.Errorf("expected length 8, got %d, %v", n, err)
	}
	if len(f.descs) != 1 {
		t.Errorf("expected one locator, got %d", len(f.descs))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.descs) != 0 {
		t.Errorf("expected locators freed, %d left", len(f.descs))
	}
}
