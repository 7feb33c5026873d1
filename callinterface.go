package oci

import "time"

// CallInterface is the boundary to the call-level client library. Every
// method maps to one library call. Calls report a Status; when a call
// fails the details are read back through Diagnostics.
//
// Implementations are not required to be safe for concurrent use. A
// Statement serializes its own calls.
type CallInterface interface {
	// BindByPos registers a bind buffer for a positional placeholder.
	BindByPos(stmt Handle, p *BindParams) (Handle, Status)
	// BindByName registers a bind buffer for a named placeholder.
	BindByName(stmt Handle, p *BindParams) (Handle, Status)
	// BindDynamic installs piecewise callbacks on a bind registered with
	// BindParams.Dynamic set. Either provider may be nil.
	BindDynamic(bind Handle, in InputProvider, out OutputProvider) Status

	// DefineByPos registers an output buffer for a select-list item.
	DefineByPos(stmt Handle, p *DefineParams) (Handle, Status)
	// DefineDynamic installs the piecewise output callback on a define
	// registered with DefineParams.Dynamic set.
	DefineDynamic(define Handle, out OutputProvider) Status

	Execute(stmt Handle, iterations, rowOffset uint32, mode ExecMode) Status
	Fetch(stmt Handle, rows uint32, orientation FetchOrientation, offset int32) Status
	// RowsFetched returns the row count of the most recent Fetch.
	RowsFetched(stmt Handle) (uint32, Status)
	// RowCount returns the cumulative processed row count.
	RowCount(stmt Handle) (uint64, Status)
	StatementType(stmt Handle) (StatementType, Status)
	// SetPrefetchRows sets the number of rows the library fetches ahead
	SetPrefetchRows(stmt Handle, rows uint32) Status
	DescribeColumns(stmt Handle) ([]ColumnInfo, Status)

	DescriptorAlloc(kind DescriptorKind) (Handle, Status)
	DescriptorFree(desc Handle, kind DescriptorKind) Status
	DateTimeConstruct(desc Handle, t time.Time) Status
	DateTimeValue(desc Handle) (time.Time, Status)
	IntervalSet(desc Handle, kind DescriptorKind, d time.Duration, months int64) Status
	IntervalValue(desc Handle, kind DescriptorKind) (d time.Duration, months int64, st Status)

	// LobLength returns the length in bytes (BLOB, BFILE) or characters
	// (CLOB).
	LobLength(lob Handle) (uint64, Status)
	// LobRead reads into buf starting at the 1-based offset. It returns
	// the bytes copied and the offset units consumed.
	LobRead(lob Handle, offset uint64, buf []byte) (n int, units uint64, st Status)
	// LobWrite writes data at the 1-based offset and returns the offset
	// units written.
	LobWrite(lob Handle, offset uint64, data []byte) (units uint64, st Status)
	LobTrim(lob Handle, length uint64) Status
	LobCreateTemporary(lob Handle, kind LobKind) Status
	LobFreeTemporary(lob Handle) Status

	// Diagnostics returns the error records left by the most recent
	// failing call.
	Diagnostics() []DiagRecord
}

// BindParams describes one bind registration. Data, Indicators, Lengths
// and ReturnCodes must stay reachable until the statement is closed; the
// library keeps their addresses.
type BindParams struct {
	Position    int
	Name        string
	WireType    WireType
	Data        []byte
	ElemSize    int
	Indicators  []int16
	Lengths     []uint16
	ReturnCodes []uint16
	// MaxArrayLen and CurArrayLen are set for PL/SQL associative array
	// binds only.
	MaxArrayLen uint32
	CurArrayLen *uint32
	CharsetForm CharsetForm
	Dynamic     bool
}

// DefineParams describes one define registration
type DefineParams struct {
	Position    int
	WireType    WireType
	Data        []byte
	ElemSize    int
	Indicators  []int16
	Lengths     []uint16
	ReturnCodes []uint16
	CharsetForm CharsetForm
	Dynamic     bool
}

// InputPiece is the answer to one "provide next input piece" callback
type InputPiece struct {
	Data      []byte
	Piece     Piece
	Indicator Indicator
}

// InputProvider supplies bind values piece by piece during Execute.
type InputProvider interface {
	ProvideInput(iteration, index uint32) (InputPiece, error)
}

// OutputPiece is a writable window handed to the library for the next
// piece of an output value. The library copies at most len(Buf) bytes,
// stores the count in *Length and may set *Indicator and *ReturnCode.
type OutputPiece struct {
	Buf        []byte
	Length     *uint32
	Piece      Piece
	Indicator  *int16
	ReturnCode *uint16
}

// OutputProvider receives bind (OUT) or define values piece by piece
// during Execute or Fetch. piece is the library's hint: PieceFirst on the
// first call for a value, PieceNext afterwards.
type OutputProvider interface {
	ProvideOutput(iteration, index uint32, piece Piece) (OutputPiece, error)
}
