package oci

import (
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-multierror"
	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"
)

// CursorState is the position of a RowCursor
type CursorState int

const (
	BeforeFirst CursorState = iota
	HasRow
	Exhausted
)

func (s CursorState) String() string {
	switch s {
	case BeforeFirst:
		return "before first row"
	case HasRow:
		return "on a row"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("CursorState(%d)", int(s))
	}
}

// RowCursor reads the rows of an executed query. Each physical fetch
// fills the defines with up to ArraySize rows; Read steps through them
// and fetches again when the batch is used up.
//
// Column accessors take the 0-based select-list index and read the
// current row. They fail with a StateError unless Read last returned true.
type RowCursor struct {
	stmt    *Statement
	columns []ColumnInfo
	defines []*Define

	state      CursorState
	current    int
	fetched    int
	noMoreData bool
	batchSize  int
	fetches    int
	total      int64
	detached   bool
}

func newRowCursor(s *Statement) (*RowCursor, error) {
	cols, st := s.lib.DescribeColumns(s.handle)
	if err := checkStatus(s.lib, "OCIParamGet", st); err != nil {
		return nil, err
	}
	c := &RowCursor{
		stmt:      s,
		columns:   cols,
		defines:   make([]*Define, len(cols)),
		batchSize: s.opts.ArraySize,
	}
	s.logger.Debug("cursor opened", "columns", len(cols), "batch_size", c.batchSize)
	return c, nil
}

// detach invalidates the cursor when its statement is closed or executed
// again, and frees the descriptors and locators of its defines
func (c *RowCursor) detach() error {
	if c.detached {
		return nil
	}
	c.detached = true
	c.state = Exhausted
	var result *multierror.Error
	for _, d := range c.defines {
		if d == nil {
			continue
		}
		if err := d.release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (c *RowCursor) checkOpen(op string) error {
	if err := c.stmt.checkOpen(op); err != nil {
		return err
	}
	if c.detached {
		return &StateError{Op: op, State: "cursor replaced by a newer execution"}
	}
	return nil
}

// Define attaches an explicit output buffer to the column at the 1-based
// position. Defines can only be added before the first Read.
func (c *RowCursor) Define(pos int, wt WireType, size int) (*Define, error) {
	return c.define("Define", pos, wt, size, KindScalar, CharsetImplicit)
}

// DefineNChar attaches a national character set output buffer
func (c *RowCursor) DefineNChar(pos int, wt WireType, size int) (*Define, error) {
	return c.define("DefineNChar", pos, wt, size, KindScalar, CharsetNChar)
}

// DefineDynamic attaches a piecewise output buffer, for LONG and LONG RAW
// columns or LOB columns fetched as a whole
func (c *RowCursor) DefineDynamic(pos int, wt WireType) (*Define, error) {
	return c.define("DefineDynamic", pos, wt, 0, KindDynamic, CharsetImplicit)
}

func (c *RowCursor) define(op string, pos int, wt WireType, size int, kind SlotKind, form CharsetForm) (*Define, error) {
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}
	if c.state != BeforeFirst {
		return nil, &StateError{Op: op, State: "cursor " + c.state.String()}
	}
	if pos < 1 || pos > len(c.columns) {
		return nil, argumentError(op, fmt.Sprintf("column %d", pos), "select list has %d columns", len(c.columns))
	}
	if c.defines[pos-1] != nil {
		return nil, argumentError(op, fmt.Sprintf("column %d", pos), "column already defined")
	}
	d, err := newDefine(c.stmt, pos, c.columns[pos-1], wt, size, kind, form)
	if err != nil {
		return nil, err
	}
	d.rows = c.RowsFetchedThisBatch
	c.defines[pos-1] = d
	return d, nil
}

// defineRemaining defines every column the caller left undefined using
// the strategy for its described type
func (c *RowCursor) defineRemaining() error {
	for i, d := range c.defines {
		if d != nil {
			continue
		}
		wt, size, kind, form := defineStrategy(c.columns[i], c.stmt.opts)
		d, err := newDefine(c.stmt, i+1, c.columns[i], wt, size, kind, form)
		if err != nil {
			return err
		}
		d.rows = c.RowsFetchedThisBatch
		c.defines[i] = d
	}
	return nil
}

// Read advances to the next row, fetching a new batch when the current
// one is used up. It returns false once the result set is exhausted.
func (c *RowCursor) Read() (bool, error) {
	if err := c.checkOpen("Read"); err != nil {
		return false, err
	}
	switch c.state {
	case Exhausted:
		return false, nil
	case BeforeFirst:
		if err := c.defineRemaining(); err != nil {
			return false, err
		}
		c.current, c.fetched = 0, 0
	case HasRow:
		c.current++
	}
	if c.current >= c.fetched {
		if c.noMoreData {
			c.finish()
			return false, nil
		}
		if err := c.fetch(); err != nil {
			c.finish()
			return false, err
		}
		if c.fetched == 0 {
			c.finish()
			return false, nil
		}
	}
	c.state = HasRow
	c.total++
	return true, nil
}

func (c *RowCursor) finish() {
	if c.state != Exhausted {
		c.stmt.logger.Debug("cursor exhausted", "rows", c.total, "fetches", c.fetches)
	}
	c.state = Exhausted
}

// fetch issues one physical fetch and refreshes the batch counters
func (c *RowCursor) fetch() error {
	s := c.stmt
	for _, d := range c.defines {
		d.beforeFetch()
	}
	st := s.lib.Fetch(s.handle, uint32(c.batchSize), FetchNext, 0)
	c.fetches++

	var pieceErr error
	for _, d := range c.defines {
		if err := d.afterFetch(); err != nil && pieceErr == nil {
			pieceErr = err
		}
	}
	switch {
	case st == StatusNoData:
		c.noMoreData = true
	case st == StatusSuccessWithInfo:
		s.logger.Warn("fetch succeeded with info", "diagnostics", s.lib.Diagnostics())
	case !st.IsSuccess():
		return newCollaboratorError(s.lib, "OCIStmtFetch2", st)
	}
	if pieceErr != nil {
		return pieceErr
	}
	rows, rst := s.lib.RowsFetched(s.handle)
	if err := checkStatus(s.lib, "OCIAttrGet(ROWS_FETCHED)", rst); err != nil {
		return err
	}
	if int(rows) > c.batchSize {
		return &StateError{Op: "Read", State: fmt.Sprintf("library reported %d rows for a batch of %d", rows, c.batchSize)}
	}
	c.fetched = int(rows)
	c.current = 0
	if rows == 0 && !c.noMoreData {
		s.logger.Warn("fetch returned no rows without end of data; treating result as exhausted", "status", st)
		c.noMoreData = true
	}
	s.logger.Trace("fetch", "rows", rows, "status", st, "no_more_data", c.noMoreData)
	return nil
}

// State returns the cursor position
func (c *RowCursor) State() CursorState { return c.state }

// CurrentRow returns the index of the current row within its batch
func (c *RowCursor) CurrentRow() int { return c.current }

// RowsFetchedThisBatch returns the row count of the last physical fetch
func (c *RowCursor) RowsFetchedThisBatch() int { return c.fetched }

// NoMoreData reports whether the library signalled the end of the
// result set
func (c *RowCursor) NoMoreData() bool { return c.noMoreData }

// RowsRead returns the number of rows Read has returned so far
func (c *RowCursor) RowsRead() int64 { return c.total }

// Fetches returns the number of physical fetches issued
func (c *RowCursor) Fetches() int { return c.fetches }

// NumColumns returns the number of select-list items
func (c *RowCursor) NumColumns() int { return len(c.columns) }

// Columns returns the column names
func (c *RowCursor) Columns() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// ColumnInfo returns the described metadata of column index
func (c *RowCursor) ColumnInfo(index int) (ColumnInfo, bool) {
	if index < 0 || index >= len(c.columns) {
		return ColumnInfo{}, false
	}
	return c.columns[index], true
}

// DefineAt returns the define of column index, nil before the first Read
// for columns not defined explicitly
func (c *RowCursor) DefineAt(index int) *Define {
	if index < 0 || index >= len(c.defines) {
		return nil
	}
	return c.defines[index]
}

// column validates the cursor state and returns the define for index
func (c *RowCursor) column(op string, index int) (*Define, error) {
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}
	if c.state != HasRow {
		return nil, &StateError{Op: op, State: "cursor " + c.state.String()}
	}
	if index < 0 || index >= len(c.defines) {
		return nil, argumentError(op, fmt.Sprintf("column %d", index), "select list has %d columns", len(c.defines))
	}
	return c.defines[index], nil
}

// Values stores the canonical value of every column of the current row
// in dest
func (c *RowCursor) Values(dest []interface{}) error {
	for i := range dest {
		if i >= len(c.defines) {
			break
		}
		v, err := c.Value(i)
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func (c *RowCursor) Value(index int) (interface{}, error) {
	d, err := c.column("Value", index)
	if err != nil {
		return nil, err
	}
	return d.Value(c.current)
}

func (c *RowCursor) IsDBNull(index int) (bool, error) {
	d, err := c.column("IsDBNull", index)
	if err != nil {
		return false, err
	}
	return d.IsDBNull(c.current)
}

// Truncated reports whether the column value of the current row was
// truncated
func (c *RowCursor) Truncated(index int) (bool, error) {
	d, err := c.column("Truncated", index)
	if err != nil {
		return false, err
	}
	return d.Truncated(c.current)
}

// ReturnCode returns the column's return code for the current row
func (c *RowCursor) ReturnCode(index int) (uint16, error) {
	d, err := c.column("ReturnCode", index)
	if err != nil {
		return 0, err
	}
	return d.ReturnCode(c.current)
}

func (c *RowCursor) AsBool(index int) (bool, error) {
	d, err := c.column("AsBool", index)
	if err != nil {
		return false, err
	}
	return d.AsBool(c.current)
}

func (c *RowCursor) AsInt8(index int) (int8, error) {
	d, err := c.column("AsInt8", index)
	if err != nil {
		return 0, err
	}
	return d.AsInt8(c.current)
}

func (c *RowCursor) AsInt16(index int) (int16, error) {
	d, err := c.column("AsInt16", index)
	if err != nil {
		return 0, err
	}
	return d.AsInt16(c.current)
}

func (c *RowCursor) AsInt32(index int) (int32, error) {
	d, err := c.column("AsInt32", index)
	if err != nil {
		return 0, err
	}
	return d.AsInt32(c.current)
}

func (c *RowCursor) AsInt64(index int) (int64, error) {
	d, err := c.column("AsInt64", index)
	if err != nil {
		return 0, err
	}
	return d.AsInt64(c.current)
}

func (c *RowCursor) AsUint8(index int) (uint8, error) {
	d, err := c.column("AsUint8", index)
	if err != nil {
		return 0, err
	}
	return d.AsUint8(c.current)
}

func (c *RowCursor) AsUint16(index int) (uint16, error) {
	d, err := c.column("AsUint16", index)
	if err != nil {
		return 0, err
	}
	return d.AsUint16(c.current)
}

func (c *RowCursor) AsUint32(index int) (uint32, error) {
	d, err := c.column("AsUint32", index)
	if err != nil {
		return 0, err
	}
	return d.AsUint32(c.current)
}

func (c *RowCursor) AsUint64(index int) (uint64, error) {
	d, err := c.column("AsUint64", index)
	if err != nil {
		return 0, err
	}
	return d.AsUint64(c.current)
}

func (c *RowCursor) AsFloat32(index int) (float32, error) {
	d, err := c.column("AsFloat32", index)
	if err != nil {
		return 0, err
	}
	return d.AsFloat32(c.current)
}

func (c *RowCursor) AsFloat64(index int) (float64, error) {
	d, err := c.column("AsFloat64", index)
	if err != nil {
		return 0, err
	}
	return d.AsFloat64(c.current)
}

func (c *RowCursor) AsDecimal(index int) (decimal.Decimal, error) {
	d, err := c.column("AsDecimal", index)
	if err != nil {
		return decimal.Zero, err
	}
	return d.AsDecimal(c.current)
}

func (c *RowCursor) AsTime(index int) (time.Time, error) {
	d, err := c.column("AsTime", index)
	if err != nil {
		return time.Time{}, err
	}
	return d.AsTime(c.current)
}

func (c *RowCursor) AsDuration(index int) (time.Duration, error) {
	d, err := c.column("AsDuration", index)
	if err != nil {
		return 0, err
	}
	return d.AsDuration(c.current)
}

func (c *RowCursor) AsUUID(index int) (uuid.UUID, error) {
	d, err := c.column("AsUUID", index)
	if err != nil {
		return uuid.Nil, err
	}
	return d.AsUUID(c.current)
}

func (c *RowCursor) AsString(index int) (string, error) {
	d, err := c.column("AsString", index)
	if err != nil {
		return "", err
	}
	return d.AsString(c.current)
}

func (c *RowCursor) AsBytes(index int) ([]byte, error) {
	d, err := c.column("AsBytes", index)
	if err != nil {
		return nil, err
	}
	return d.AsBytes(c.current)
}

func (c *RowCursor) AsLob(index int) (*Lob, error) {
	d, err := c.column("AsLob", index)
	if err != nil {
		return nil, err
	}
	return d.AsLob(c.current)
}

// ColumnTypeScanType returns the Go type Value produces for a column
func (c *RowCursor) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(c.columns) {
		return reflect.TypeOf(new(interface{})).Elem()
	}
	wt, _, _, _ := defineStrategy(c.columns[index], c.stmt.opts)
	if d := c.defines[index]; d != nil {
		wt = d.WireType()
	}
	switch wt {
	case WireInt:
		return reflect.TypeOf(int64(0))
	case WireUint:
		return reflect.TypeOf(uint64(0))
	case WireFloat, WireBFloat, WireBDouble:
		return reflect.TypeOf(float64(0))
	case WireNumber, WireVarNum:
		return reflect.TypeOf(decimal.Decimal{})
	case WireDate, WireTimestamp, WireTimestampTZ, WireTimestampLTZ:
		return reflect.TypeOf(time.Time{})
	case WireIntervalDS:
		return reflect.TypeOf(time.Duration(0))
	case WireIntervalYM:
		return reflect.TypeOf(int64(0))
	case WireClob, WireBlob, WireBFile:
		return reflect.TypeOf(&Lob{})
	case WireRaw, WireVarRaw, WireLongVarRaw, WireLongRaw:
		return reflect.TypeOf([]byte{})
	default:
		return reflect.TypeOf("")
	}
}

// ColumnTypeDatabaseTypeName returns the database type name
func (c *RowCursor) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(c.columns) {
		return ""
	}
	return c.columns[index].TypeName()
}

// ColumnTypeLength returns the length of a character or raw column
func (c *RowCursor) ColumnTypeLength(index int) (length int64, ok bool) {
	if index < 0 || index >= len(c.columns) {
		return 0, false
	}
	col := c.columns[index]
	switch col.DataType {
	case TypeVarchar2, TypeChar:
		if col.CharSize > 0 {
			return int64(col.CharSize), true
		}
		return int64(col.Size), true
	case TypeRaw:
		return int64(col.Size), true
	}
	return 0, false
}

// ColumnTypeNullable returns whether a column is nullable
func (c *RowCursor) ColumnTypeNullable(index int) (nullable, ok bool) {
	if index < 0 || index >= len(c.columns) {
		return false, false
	}
	return c.columns[index].Nullable, true
}

// ColumnTypePrecisionScale returns the precision and scale for NUMBER
// columns
func (c *RowCursor) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	if index < 0 || index >= len(c.columns) {
		return 0, 0, false
	}
	col := c.columns[index]
	if col.DataType != TypeNumber {
		return 0, 0, false
	}
	return int64(col.Precision), int64(col.Scale), true
}
