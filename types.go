package oci

import "fmt"

// Handle is an opaque library handle (statement, bind, define,
// descriptor or LOB locator).
type Handle uintptr

// NullHandle is the zero handle.
const NullHandle Handle = 0

// WireType is the library's external data type code (SQLT_*). It
// tells the library how to interpret the bytes of a bind or define
// buffer.
type WireType uint16

// External data types
const (
	WireUndefined    WireType = 0
	WireChar         WireType = 1   // SQLT_CHR
	WireNumber       WireType = 2   // SQLT_NUM
	WireInt          WireType = 3   // SQLT_INT
	WireFloat        WireType = 4   // SQLT_FLT
	WireString       WireType = 5   // SQLT_STR, NUL terminated
	WireVarNum       WireType = 6   // SQLT_VNU
	WireLong         WireType = 8   // SQLT_LNG
	WireVarChar      WireType = 9   // SQLT_VCS, 2 byte length header
	WireDate         WireType = 12  // SQLT_DAT
	WireVarRaw       WireType = 15  // SQLT_VBI, 2 byte length header
	WireBFloat       WireType = 21  // SQLT_BFLOAT
	WireBDouble      WireType = 22  // SQLT_BDOUBLE
	WireRaw          WireType = 23  // SQLT_BIN
	WireLongRaw      WireType = 24  // SQLT_LBI
	WireUint         WireType = 68  // SQLT_UIN
	WireLongVarChar  WireType = 94  // SQLT_LVC, 4 byte length header
	WireLongVarRaw   WireType = 95  // SQLT_LVB, 4 byte length header
	WireAnsiChar     WireType = 96  // SQLT_AFC
	WireCharZ        WireType = 97  // SQLT_AVC
	WireClob         WireType = 112 // SQLT_CLOB
	WireBlob         WireType = 113 // SQLT_BLOB
	WireBFile        WireType = 114 // SQLT_BFILEE
	WireTimestamp    WireType = 187 // SQLT_TIMESTAMP
	WireTimestampTZ  WireType = 188 // SQLT_TIMESTAMP_TZ
	WireIntervalYM   WireType = 189 // SQLT_INTERVAL_YM
	WireIntervalDS   WireType = 190 // SQLT_INTERVAL_DS
	WireTimestampLTZ WireType = 232 // SQLT_TIMESTAMP_LTZ
)

// String returns the library's name for the wire type
func (w WireType) String() string {
	switch w {
	case WireChar:
		return "CHR"
	case WireNumber:
		return "NUM"
	case WireInt:
		return "INT"
	case WireFloat:
		return "FLT"
	case WireString:
		return "STR"
	case WireVarNum:
		return "VNU"
	case WireLong:
		return "LNG"
	case WireVarChar:
		return "VCS"
	case WireDate:
		return "DAT"
	case WireVarRaw:
		return "VBI"
	case WireBFloat:
		return "BFLOAT"
	case WireBDouble:
		return "BDOUBLE"
	case WireRaw:
		return "BIN"
	case WireLongRaw:
		return "LBI"
	case WireUint:
		return "UIN"
	case WireLongVarChar:
		return "LVC"
	case WireLongVarRaw:
		return "LVB"
	case WireAnsiChar:
		return "AFC"
	case WireCharZ:
		return "AVC"
	case WireClob:
		return "CLOB"
	case WireBlob:
		return "BLOB"
	case WireBFile:
		return "BFILE"
	case WireTimestamp:
		return "TIMESTAMP"
	case WireTimestampTZ:
		return "TIMESTAMP_TZ"
	case WireIntervalYM:
		return "INTERVAL_YM"
	case WireIntervalDS:
		return "INTERVAL_DS"
	case WireTimestampLTZ:
		return "TIMESTAMP_LTZ"
	default:
		return fmt.Sprintf("WireType(%d)", uint16(w))
	}
}

// Category groups wire types by the kind of value they carry
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNumeric
	CategoryText
	CategoryBinary
	CategoryTemporal
	CategoryDescriptor
	CategoryLOB
)

func (c Category) String() string {
	switch c {
	case CategoryNumeric:
		return "numeric"
	case CategoryText:
		return "text"
	case CategoryBinary:
		return "binary"
	case CategoryTemporal:
		return "temporal"
	case CategoryDescriptor:
		return "descriptor"
	case CategoryLOB:
		return "lob"
	default:
		return "unknown"
	}
}

// SlotKind is the transfer strategy of a bind or define
type SlotKind int

const (
	// KindScalar holds one fixed-width intermediate value
	KindScalar SlotKind = iota
	// KindArray holds N intermediate values with N indicators
	KindArray
	// KindDynamic transfers values piecewise through callbacks
	KindDynamic
)

func (k SlotKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
}

// Status is the return code of a library call
type Status int32

const (
	StatusSuccess         Status = 0
	StatusSuccessWithInfo Status = 1
	StatusNeedData        Status = 99
	StatusNoData          Status = 100
	StatusError           Status = -1
	StatusInvalidHandle   Status = -2
	StatusStillExecuting  Status = -3123
)

// IsSuccess checks if the status indicates success
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSuccessWithInfo
}

// String returns a string representation of a status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "OCI_SUCCESS"
	case StatusSuccessWithInfo:
		return "OCI_SUCCESS_WITH_INFO"
	case StatusNeedData:
		return "OCI_NEED_DATA"
	case StatusNoData:
		return "OCI_NO_DATA"
	case StatusError:
		return "OCI_ERROR"
	case StatusInvalidHandle:
		return "OCI_INVALID_HANDLE"
	case StatusStillExecuting:
		return "OCI_STILL_EXECUTING"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Piece tags one transfer of a piecewise value
type Piece uint8

const (
	PieceOne   Piece = 0 // the only piece
	PieceFirst Piece = 1
	PieceNext  Piece = 2
	PieceLast  Piece = 3
)

func (p Piece) String() string {
	switch p {
	case PieceOne:
		return "one"
	case PieceFirst:
		return "first"
	case PieceNext:
		return "next"
	case PieceLast:
		return "last"
	default:
		return fmt.Sprintf("Piece(%d)", uint8(p))
	}
}

// Indicator is the null/truncation marker stored next to every value.
// -1 is null, 0 is not null and a positive value is the original length
// of a value that was truncated.
type Indicator int16

const (
	IndicatorNotNull Indicator = 0
	IndicatorNull    Indicator = -1
)

// IsNull reports whether the indicator marks a null value
func (i Indicator) IsNull() bool { return i == IndicatorNull }

// Truncated reports whether the indicator carries a truncated length
func (i Indicator) Truncated() bool { return i > 0 }

// ExecMode is the mode argument to Execute
type ExecMode uint32

const (
	ExecDefault         ExecMode = 0x00
	ExecBatchMode       ExecMode = 0x01
	ExecDescribeOnly    ExecMode = 0x10
	ExecCommitOnSuccess ExecMode = 0x20
	ExecBatchErrors     ExecMode = 0x80
	ExecParseOnly       ExecMode = 0x100
	ExecReturnRowCounts ExecMode = 0x100000
)

// FetchOrientation is the orientation argument to Fetch
type FetchOrientation uint16

const (
	FetchNext     FetchOrientation = 0x02
	FetchFirst    FetchOrientation = 0x04
	FetchLast     FetchOrientation = 0x08
	FetchPrior    FetchOrientation = 0x10
	FetchAbsolute FetchOrientation = 0x20
	FetchRelative FetchOrientation = 0x40
)

// StatementType is the library's classification of a prepared
// statement (OCI_ATTR_STMT_TYPE)
type StatementType uint16

const (
	StmtUnknown StatementType = 0
	StmtSelect  StatementType = 1
	StmtUpdate  StatementType = 2
	StmtDelete  StatementType = 3
	StmtInsert  StatementType = 4
	StmtCreate  StatementType = 5
	StmtDrop    StatementType = 6
	StmtAlter   StatementType = 7
	StmtBegin   StatementType = 8
	StmtDeclare StatementType = 9
	StmtCall    StatementType = 10
	StmtMerge   StatementType = 16
)

// IsPLSQL reports whether the statement is an anonymous PL/SQL block or a
// procedure call
func (t StatementType) IsPLSQL() bool {
	return t == StmtBegin || t == StmtDeclare || t == StmtCall
}

// DescriptorKind selects the descriptor type allocated for a value
type DescriptorKind uint32

const (
	DescriptorNone         DescriptorKind = 0
	DescriptorLob          DescriptorKind = 50 // OCI_DTYPE_LOB
	DescriptorFile         DescriptorKind = 56 // OCI_DTYPE_FILE
	DescriptorIntervalYM   DescriptorKind = 62 // OCI_DTYPE_INTERVAL_YM
	DescriptorIntervalDS   DescriptorKind = 63 // OCI_DTYPE_INTERVAL_DS
	DescriptorTimestamp    DescriptorKind = 68 // OCI_DTYPE_TIMESTAMP
	DescriptorTimestampTZ  DescriptorKind = 69 // OCI_DTYPE_TIMESTAMP_TZ
	DescriptorTimestampLTZ DescriptorKind = 70 // OCI_DTYPE_TIMESTAMP_LTZ
)

// LobKind distinguishes character from binary large objects
type LobKind uint8

const (
	LobBlob LobKind = 1 // OCI_TEMP_BLOB
	LobClob LobKind = 2 // OCI_TEMP_CLOB
)

// CharsetForm selects the database or national character set for text
type CharsetForm uint8

const (
	CharsetImplicit CharsetForm = 1 // SQLCS_IMPLICIT
	CharsetNChar    CharsetForm = 2 // SQLCS_NCHAR
)

// Server-side (internal) column type codes reported by DescribeColumns
const (
	TypeVarchar2     uint16 = 1
	TypeNumber       uint16 = 2
	TypeLong         uint16 = 8
	TypeDate         uint16 = 12
	TypeRaw          uint16 = 23
	TypeLongRaw      uint16 = 24
	TypeChar         uint16 = 96
	TypeBinaryFloat  uint16 = 100
	TypeBinaryDouble uint16 = 101
	TypeClob         uint16 = 112
	TypeBlob         uint16 = 113
	TypeBFile        uint16 = 114
	TypeTimestamp    uint16 = 180
	TypeTimestampTZ  uint16 = 181
	TypeIntervalYM   uint16 = 182
	TypeIntervalDS   uint16 = 183
	TypeTimestampLTZ uint16 = 231
)

// ColumnInfo describes one select-list item
type ColumnInfo struct {
	Name        string
	DataType    uint16 // server-side type code
	Size        int    // byte width for character and raw columns
	CharSize    int    // width in characters for character columns
	Precision   int
	Scale       int
	Nullable    bool
	CharsetForm CharsetForm
}

// TypeName returns the database type name of a column
func (c ColumnInfo) TypeName() string {
	switch c.DataType {
	case TypeVarchar2:
		if c.CharsetForm == CharsetNChar {
			return "NVARCHAR2"
		}
		return "VARCHAR2"
	case TypeNumber:
		return "NUMBER"
	case TypeLong:
		return "LONG"
	case TypeDate:
		return "DATE"
	case TypeRaw:
		return "RAW"
	case TypeLongRaw:
		return "LONG RAW"
	case TypeChar:
		if c.CharsetForm == CharsetNChar {
			return "NCHAR"
		}
		return "CHAR"
	case TypeBinaryFloat:
		return "BINARY_FLOAT"
	case TypeBinaryDouble:
		return "BINARY_DOUBLE"
	case TypeClob:
		if c.CharsetForm == CharsetNChar {
			return "NCLOB"
		}
		return "CLOB"
	case TypeBlob:
		return "BLOB"
	case TypeBFile:
		return "BFILE"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeTimestampTZ:
		return "TIMESTAMP WITH TIME ZONE"
	case TypeIntervalYM:
		return "INTERVAL YEAR TO MONTH"
	case TypeIntervalDS:
		return "INTERVAL DAY TO SECOND"
	case TypeTimestampLTZ:
		return "TIMESTAMP WITH LOCAL TIME ZONE"
	default:
		return "UNKNOWN"
	}
}
