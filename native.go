package oci

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Handle and descriptor types
const (
	htypeEnv    ub4 = 1
	htypeError  ub4 = 2
	htypeSvcCtx ub4 = 3
	htypeStmt   ub4 = 4
	htypeBind   ub4 = 5
	htypeDefine ub4 = 6
	dtypeParam  ub4 = 53
)

// Attributes
const (
	attrDataSize     ub4 = 1
	attrDataType     ub4 = 2
	attrName         ub4 = 4
	attrPrecision    ub4 = 5
	attrScale        ub4 = 6
	attrIsNull       ub4 = 7
	attrPrefetchRows ub4 = 11
	attrParamCount   ub4 = 18
	attrStmtType     ub4 = 24
	attrCharsetForm  ub4 = 32
	attrRowsFetched  ub4 = 197
	attrCharSize     ub4 = 286
	attrUB8RowCount  ub4 = 457
)

// Modes and misc constants
const (
	modeDefault      ub4 = 0
	modeThreaded     ub4 = 1
	modeObject       ub4 = 2
	modeDataAtExec   ub4 = 2 // OCIBindByPos/Name
	modeDynamicFetch ub4 = 2 // OCIDefineByPos
	ntvSyntax        ub4 = 1
	charsetAL32UTF8  ub2 = 873
	charsetAL16UTF16 ub2 = 2000
	durationSession  ub2 = 10
	onePiece         ub1 = 0
	dynamicMaxSize   sb4 = maxLongSize
	diagBufferSize       = 3072
)

// NativeLibrary implements CallInterface on top of the OCI client library
// loaded at runtime. It owns one environment, error handle and session.
// Like the statements built on it, it is not safe for concurrent use.
type NativeLibrary struct {
	env    uintptr
	errh   uintptr
	svc    uintptr
	logger hclog.Logger

	diags   []DiagRecord
	pending []DiagRecord // raised by callbacks during the current call

	// buffers handed to the library stay pinned until the statement
	// that registered them is released
	pins   map[Handle]*runtime.Pinner
	owners map[Handle]Handle // bind or define handle to statement

	closed bool
}

var _ CallInterface = (*NativeLibrary)(nil)

// OpenNative loads the client library, creates a UTF-8 environment and
// logs on to connect (an Easy Connect string or TNS alias).
func OpenNative(username, password, connect string, opts ...Option) (*NativeLibrary, error) {
	o, err := buildOptions(DefaultOptions(), opts)
	if err != nil {
		return nil, err
	}
	if err := initOCI(); err != nil {
		return nil, err
	}
	n := &NativeLibrary{
		logger: o.Logger.Named("native"),
		pins:   make(map[Handle]*runtime.Pinner),
		owners: make(map[Handle]Handle),
	}

	if r := ociEnvNlsCreate(&n.env, modeThreaded|modeObject, 0, 0, 0, 0, 0, 0, charsetAL32UTF8, charsetAL32UTF8); Status(r) != StatusSuccess {
		return nil, errors.Errorf("oci: OCIEnvNlsCreate failed with %s", Status(r))
	}
	if r := ociHandleAlloc(n.env, &n.errh, htypeError, 0, 0); Status(r) != StatusSuccess {
		ociHandleFree(n.env, htypeEnv)
		return nil, errors.Errorf("oci: OCIHandleAlloc(ERROR) failed with %s", Status(r))
	}

	user, pass, db := []byte(username), []byte(password), []byte(connect)
	st := n.status(ociLogon2(n.env, n.errh, &n.svc,
		bytePtr(user), ub4(len(user)),
		bytePtr(pass), ub4(len(pass)),
		bytePtr(db), ub4(len(db)), modeDefault))
	if !st.IsSuccess() {
		err := newCollaboratorError(n, "OCILogon2", st)
		ociHandleFree(n.errh, htypeError)
		ociHandleFree(n.env, htypeEnv)
		return nil, err
	}
	n.logger.Debug("session opened", "connect", connect, "user", username)
	return n, nil
}

// status converts a return code and captures the error records of a
// failing call
func (n *NativeLibrary) status(r sword) Status {
	st := Status(r)
	if st == StatusError || st == StatusSuccessWithInfo {
		n.diags = append(n.pending, n.readDiagnostics()...)
	}
	n.pending = nil
	return st
}

func (n *NativeLibrary) readDiagnostics() []DiagRecord {
	var records []DiagRecord
	buf := make([]byte, diagBufferSize)
	for rec := ub4(1); ; rec++ {
		var code sb4
		clear(buf)
		if Status(ociErrorGet(n.errh, rec, nil, &code, &buf[0], ub4(len(buf)), htypeError)) != StatusSuccess {
			break
		}
		msg := buf
		if i := bytes.IndexByte(msg, 0); i >= 0 {
			msg = msg[:i]
		}
		records = append(records, DiagRecord{Code: code, Message: strings.TrimSpace(string(msg))})
	}
	return records
}

// Diagnostics returns the error records of the most recent failing call
func (n *NativeLibrary) Diagnostics() []DiagRecord {
	return n.diags
}

// fail records an error returned by a provider inside a callback
func (n *NativeLibrary) fail(err error) {
	n.pending = append(n.pending, DiagRecord{Message: err.Error()})
}

// Prepare prepares query on the session and returns the statement handle
func (n *NativeLibrary) Prepare(query string) (Handle, error) {
	if n.closed {
		return NullHandle, &StateError{Op: "Prepare", State: "library closed"}
	}
	text := []byte(query)
	var stmt uintptr
	st := n.status(ociStmtPrepare2(n.svc, &stmt, n.errh, bytePtr(text), ub4(len(text)), nil, 0, ntvSyntax, modeDefault))
	if err := checkStatus(n, "OCIStmtPrepare2", st); err != nil {
		return NullHandle, err
	}
	n.logger.Trace("statement prepared", "handle", stmt)
	return Handle(stmt), nil
}

// NewStatement prepares query and wraps the handle in a Statement. Close
// the statement, then release the handle with ReleaseStatement.
func (n *NativeLibrary) NewStatement(query string, opts ...Option) (*Statement, error) {
	h, err := n.Prepare(query)
	if err != nil {
		return nil, err
	}
	s, err := NewStatement(n, h, query, opts...)
	if err != nil {
		return nil, multierror.Append(err, n.ReleaseStatement(h)).ErrorOrNil()
	}
	return s, nil
}

// ReleaseStatement returns a prepared statement handle to the library
// and unpins every buffer registered on it
func (n *NativeLibrary) ReleaseStatement(stmt Handle) error {
	if p, ok := n.pins[stmt]; ok {
		p.Unpin()
		delete(n.pins, stmt)
	}
	for h, owner := range n.owners {
		if owner == stmt {
			unregisterCallback(h)
			delete(n.owners, h)
		}
	}
	st := n.status(ociStmtRelease(uintptr(stmt), n.errh, nil, 0, modeDefault))
	return checkStatus(n, "OCIStmtRelease", st)
}

// Close logs off and frees the environment
func (n *NativeLibrary) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	var result *multierror.Error
	for stmt := range n.pins {
		if err := n.ReleaseStatement(stmt); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := checkStatus(n, "OCILogoff", n.status(ociLogoff(n.svc, n.errh))); err != nil {
		result = multierror.Append(result, err)
	}
	ociHandleFree(n.errh, htypeError)
	ociHandleFree(n.env, htypeEnv)
	n.logger.Debug("session closed")
	return result.ErrorOrNil()
}

func (n *NativeLibrary) pinner(stmt Handle) *runtime.Pinner {
	p, ok := n.pins[stmt]
	if !ok {
		p = new(runtime.Pinner)
		n.pins[stmt] = p
	}
	return p
}

// pinned pins the first element of s and returns its address, or 0 for an
// empty slice
func pinned[T any](p *runtime.Pinner, s []T) uintptr {
	if len(s) == 0 {
		return 0
	}
	p.Pin(&s[0])
	return uintptr(unsafe.Pointer(&s[0]))
}

func bytePtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}

func (n *NativeLibrary) bind(stmt Handle, p *BindParams, byName bool) (Handle, Status) {
	pin := n.pinner(stmt)
	var (
		value = pinned(pin, p.Data)
		size  = sb4(p.ElemSize)
		mode  = modeDefault
		cur   uintptr
	)
	if p.Dynamic {
		value, size, mode = 0, dynamicMaxSize, modeDataAtExec
	}
	if p.CurArrayLen != nil {
		pin.Pin(p.CurArrayLen)
		cur = uintptr(unsafe.Pointer(p.CurArrayLen))
	}
	var bind uintptr
	var r sword
	if byName {
		name := []byte(p.Name)
		r = ociBindByName(uintptr(stmt), &bind, n.errh, bytePtr(name), sb4(len(name)),
			value, size, ub2(p.WireType), pinned(pin, p.Indicators), pinned(pin, p.Lengths),
			pinned(pin, p.ReturnCodes), p.MaxArrayLen, cur, mode)
	} else {
		r = ociBindByPos(uintptr(stmt), &bind, n.errh, ub4(p.Position),
			value, size, ub2(p.WireType), pinned(pin, p.Indicators), pinned(pin, p.Lengths),
			pinned(pin, p.ReturnCodes), p.MaxArrayLen, cur, mode)
	}
	st := n.status(r)
	if !st.IsSuccess() {
		return NullHandle, st
	}
	n.owners[Handle(bind)] = stmt
	if p.CharsetForm == CharsetNChar {
		if st := n.setCharsetForm(bind, htypeBind, p.CharsetForm); !st.IsSuccess() {
			return NullHandle, st
		}
	}
	return Handle(bind), st
}

func (n *NativeLibrary) setCharsetForm(h uintptr, htype ub4, form CharsetForm) Status {
	v := ub1(form)
	return n.status(ociAttrSet(h, htype, uintptr(unsafe.Pointer(&v)), 0, attrCharsetForm, n.errh))
}

func (n *NativeLibrary) BindByPos(stmt Handle, p *BindParams) (Handle, Status) {
	return n.bind(stmt, p, false)
}

func (n *NativeLibrary) BindByName(stmt Handle, p *BindParams) (Handle, Status) {
	return n.bind(stmt, p, true)
}

func (n *NativeLibrary) BindDynamic(bind Handle, in InputProvider, out OutputProvider) Status {
	registerCallback(bind, &callbackTarget{lib: n, pin: n.pinner(n.owners[bind]), in: in, out: out})
	var icb, ocb uintptr
	if in != nil {
		icb = inBindCallback
	}
	if out != nil {
		ocb = outBindCallback
	}
	return n.status(ociBindDynamic(uintptr(bind), n.errh, uintptr(bind), icb, uintptr(bind), ocb))
}

func (n *NativeLibrary) DefineByPos(stmt Handle, p *DefineParams) (Handle, Status) {
	pin := n.pinner(stmt)
	var (
		value = pinned(pin, p.Data)
		size  = sb4(p.ElemSize)
		mode  = modeDefault
	)
	if p.Dynamic {
		value, size, mode = 0, dynamicMaxSize, modeDynamicFetch
	}
	var def uintptr
	st := n.status(ociDefineByPos(uintptr(stmt), &def, n.errh, ub4(p.Position),
		value, size, ub2(p.WireType), pinned(pin, p.Indicators), pinned(pin, p.Lengths),
		pinned(pin, p.ReturnCodes), mode))
	if !st.IsSuccess() {
		return NullHandle, st
	}
	n.owners[Handle(def)] = stmt
	if p.CharsetForm == CharsetNChar {
		if st := n.setCharsetForm(def, htypeDefine, p.CharsetForm); !st.IsSuccess() {
			return NullHandle, st
		}
	}
	return Handle(def), st
}

func (n *NativeLibrary) DefineDynamic(define Handle, out OutputProvider) Status {
	registerCallback(define, &callbackTarget{lib: n, pin: n.pinner(n.owners[define]), out: out})
	return n.status(ociDefineDynamic(uintptr(define), n.errh, uintptr(define), defineCallback))
}

func (n *NativeLibrary) Execute(stmt Handle, iterations, rowOffset uint32, mode ExecMode) Status {
	return n.status(ociStmtExecute(n.svc, uintptr(stmt), n.errh, iterations, rowOffset, 0, 0, ub4(mode)))
}

func (n *NativeLibrary) Fetch(stmt Handle, rows uint32, orientation FetchOrientation, offset int32) Status {
	return n.status(ociStmtFetch2(uintptr(stmt), n.errh, rows, ub2(orientation), offset, modeDefault))
}

func (n *NativeLibrary) attrGet(h uintptr, htype ub4, attr ub4, dst unsafe.Pointer) Status {
	return n.status(ociAttrGet(h, htype, uintptr(dst), nil, attr, n.errh))
}

func (n *NativeLibrary) RowsFetched(stmt Handle) (uint32, Status) {
	var rows ub4
	st := n.attrGet(uintptr(stmt), htypeStmt, attrRowsFetched, unsafe.Pointer(&rows))
	return rows, st
}

func (n *NativeLibrary) RowCount(stmt Handle) (uint64, Status) {
	var rows ub8
	st := n.attrGet(uintptr(stmt), htypeStmt, attrUB8RowCount, unsafe.Pointer(&rows))
	return rows, st
}

func (n *NativeLibrary) StatementType(stmt Handle) (StatementType, Status) {
	var t ub2
	st := n.attrGet(uintptr(stmt), htypeStmt, attrStmtType, unsafe.Pointer(&t))
	return StatementType(t), st
}

func (n *NativeLibrary) SetPrefetchRows(stmt Handle, rows uint32) Status {
	v := ub4(rows)
	return n.status(ociAttrSet(uintptr(stmt), htypeStmt, uintptr(unsafe.Pointer(&v)), 0, attrPrefetchRows, n.errh))
}

// DescribeColumns reads the select list of an executed query through
// implicit describe
func (n *NativeLibrary) DescribeColumns(stmt Handle) ([]ColumnInfo, Status) {
	var count ub4
	if st := n.attrGet(uintptr(stmt), htypeStmt, attrParamCount, unsafe.Pointer(&count)); !st.IsSuccess() {
		return nil, st
	}
	cols := make([]ColumnInfo, 0, count)
	for pos := ub4(1); pos <= count; pos++ {
		var param uintptr
		if st := n.status(ociParamGet(uintptr(stmt), htypeStmt, n.errh, &param, pos)); !st.IsSuccess() {
			return nil, st
		}
		col, st := n.describeParam(param)
		ociDescriptorFree(param, dtypeParam)
		if !st.IsSuccess() {
			return nil, st
		}
		cols = append(cols, col)
	}
	return cols, StatusSuccess
}

func (n *NativeLibrary) describeParam(param uintptr) (ColumnInfo, Status) {
	var (
		dataType  ub2
		dataSize  ub2
		charSize  ub2
		precision sb2
		scale     sb1
		nullable  ub1
		form      ub1
		namePtr   uintptr
		nameLen   ub4
	)
	attrs := []struct {
		attr ub4
		dst  unsafe.Pointer
	}{
		{attrDataType, unsafe.Pointer(&dataType)},
		{attrDataSize, unsafe.Pointer(&dataSize)},
		{attrCharSize, unsafe.Pointer(&charSize)},
		{attrPrecision, unsafe.Pointer(&precision)},
		{attrScale, unsafe.Pointer(&scale)},
		{attrIsNull, unsafe.Pointer(&nullable)},
		{attrCharsetForm, unsafe.Pointer(&form)},
	}
	for _, a := range attrs {
		if st := n.attrGet(param, dtypeParam, a.attr, a.dst); !st.IsSuccess() {
			return ColumnInfo{}, st
		}
	}
	st := n.status(ociAttrGet(param, dtypeParam, uintptr(unsafe.Pointer(&namePtr)), &nameLen, attrName, n.errh))
	if !st.IsSuccess() {
		return ColumnInfo{}, st
	}
	var name string
	if namePtr != 0 && nameLen > 0 {
		name = string(unsafe.Slice((*byte)(unsafe.Pointer(namePtr)), nameLen))
	}
	return ColumnInfo{
		Name:        name,
		DataType:    dataType,
		Size:        int(dataSize),
		CharSize:    int(charSize),
		Precision:   int(precision),
		Scale:       int(scale),
		Nullable:    nullable != 0,
		CharsetForm: CharsetForm(form),
	}, StatusSuccess
}

func (n *NativeLibrary) DescriptorAlloc(kind DescriptorKind) (Handle, Status) {
	var desc uintptr
	st := Status(ociDescriptorAlloc(n.env, &desc, ub4(kind), 0, 0))
	return Handle(desc), st
}

func (n *NativeLibrary) DescriptorFree(desc Handle, kind DescriptorKind) Status {
	return Status(ociDescriptorFree(uintptr(desc), ub4(kind)))
}

// DateTimeConstruct stores t in a TIMESTAMP descriptor. Zoned descriptors
// keep t's UTC offset.
func (n *NativeLibrary) DateTimeConstruct(desc Handle, t time.Time) Status {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign, offset = '-', -offset
	}
	tz := []byte(fmt.Sprintf("%c%02d:%02d", sign, offset/3600, offset%3600/60))
	return n.status(ociDateTimeConstruct(n.env, n.errh, uintptr(desc),
		sb2(t.Year()), ub1(t.Month()), ub1(t.Day()),
		ub1(t.Hour()), ub1(t.Minute()), ub1(t.Second()), ub4(t.Nanosecond()),
		&tz[0], uintptr(len(tz))))
}

func (n *NativeLibrary) DateTimeValue(desc Handle) (time.Time, Status) {
	var (
		year                 sb2
		month, day           ub1
		hour, minute, second ub1
		fsec                 ub4
		tzHour, tzMinute     sb1
	)
	if st := n.status(ociDateTimeGetDate(n.env, n.errh, uintptr(desc), &year, &month, &day)); !st.IsSuccess() {
		return time.Time{}, st
	}
	if st := n.status(ociDateTimeGetTime(n.env, n.errh, uintptr(desc), &hour, &minute, &second, &fsec)); !st.IsSuccess() {
		return time.Time{}, st
	}
	loc := time.UTC
	// plain TIMESTAMP descriptors carry no zone and fail here
	if Status(ociDateTimeGetTZOff(n.env, n.errh, uintptr(desc), &tzHour, &tzMinute)) == StatusSuccess {
		offset := int(tzHour)*3600 + int(tzMinute)*60
		if offset != 0 {
			loc = time.FixedZone("", offset)
		}
	}
	return time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second), int(fsec), loc), StatusSuccess
}

func (n *NativeLibrary) IntervalSet(desc Handle, kind DescriptorKind, d time.Duration, months int64) Status {
	if kind == DescriptorIntervalYM {
		return n.status(ociIntervalSetYM(n.env, n.errh, sb4(months/12), sb4(months%12), uintptr(desc)))
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	return n.status(ociIntervalSetDS(n.env, n.errh, sb4(days), sb4(hours), sb4(minutes), sb4(seconds), sb4(d), uintptr(desc)))
}

func (n *NativeLibrary) IntervalValue(desc Handle, kind DescriptorKind) (time.Duration, int64, Status) {
	if kind == DescriptorIntervalYM {
		var years, months sb4
		st := n.status(ociIntervalGetYM(n.env, n.errh, &years, &months, uintptr(desc)))
		return 0, int64(years)*12 + int64(months), st
	}
	var dd, hh, mm, ss, fsec sb4
	st := n.status(ociIntervalGetDS(n.env, n.errh, &dd, &hh, &mm, &ss, &fsec, uintptr(desc)))
	d := time.Duration(dd)*24*time.Hour + time.Duration(hh)*time.Hour +
		time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second + time.Duration(fsec)
	return d, 0, st
}

func (n *NativeLibrary) LobLength(lob Handle) (uint64, Status) {
	var length ub8
	st := n.status(ociLobGetLength2(n.svc, n.errh, uintptr(lob), &length))
	return length, st
}

// lobForm returns the character set form of a locator, 0 for binary LOBs
func (n *NativeLibrary) lobForm(lob Handle) (ub1, Status) {
	var form ub1
	st := n.status(ociLobCharSetForm(n.env, n.errh, uintptr(lob), &form))
	return form, st
}

func (n *NativeLibrary) LobRead(lob Handle, offset uint64, buf []byte) (int, uint64, Status) {
	form, st := n.lobForm(lob)
	if !st.IsSuccess() {
		return 0, 0, st
	}
	byteAmt, charAmt := ub8(len(buf)), ub8(0)
	st = n.status(ociLobRead2(n.svc, n.errh, uintptr(lob), &byteAmt, &charAmt, offset,
		uintptr(unsafe.Pointer(&buf[0])), ub8(len(buf)), onePiece, 0, 0, 0, form))
	runtime.KeepAlive(buf)
	if form == 0 {
		return int(byteAmt), byteAmt, st
	}
	return int(byteAmt), charAmt, st
}

func (n *NativeLibrary) LobWrite(lob Handle, offset uint64, data []byte) (uint64, Status) {
	form, st := n.lobForm(lob)
	if !st.IsSuccess() {
		return 0, st
	}
	byteAmt, charAmt := ub8(len(data)), ub8(0)
	st = n.status(ociLobWrite2(n.svc, n.errh, uintptr(lob), &byteAmt, &charAmt, offset,
		uintptr(unsafe.Pointer(&data[0])), ub8(len(data)), onePiece, 0, 0, 0, form))
	runtime.KeepAlive(data)
	if form == 0 {
		return byteAmt, st
	}
	return charAmt, st
}

func (n *NativeLibrary) LobTrim(lob Handle, length uint64) Status {
	return n.status(ociLobTrim2(n.svc, n.errh, uintptr(lob), length))
}

func (n *NativeLibrary) LobCreateTemporary(lob Handle, kind LobKind) Status {
	form := ub1(0)
	if kind == LobClob {
		form = ub1(CharsetImplicit)
	}
	return n.status(ociLobCreateTemporary(n.svc, n.errh, uintptr(lob), 0, form, ub1(kind), 0, durationSession))
}

func (n *NativeLibrary) LobFreeTemporary(lob Handle) Status {
	return n.status(ociLobFreeTemporary(n.svc, n.errh, uintptr(lob)))
}
