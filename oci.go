package oci

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	ociLib   uintptr
	initOnce sync.Once
	initErr  error
)

// Integer types named after the OCI headers
type (
	sb1   = int8
	ub1   = uint8
	sb2   = int16
	ub2   = uint16
	sb4   = int32
	ub4   = uint32
	ub8   = uint64
	sword = int32
)

// OCI function pointers, populated by purego
var (
	ociEnvNlsCreate       func(envhpp *uintptr, mode ub4, ctxp, malocfp, ralocfp, mfreefp uintptr, xtramemSz uintptr, usrmempp uintptr, charset, ncharset ub2) sword
	ociHandleAlloc        func(parenth uintptr, hndlpp *uintptr, htype ub4, xtramemSz uintptr, usrmempp uintptr) sword
	ociHandleFree         func(hndlp uintptr, htype ub4) sword
	ociErrorGet           func(hndlp uintptr, recordno ub4, sqlstate *byte, errcodep *sb4, bufp *byte, bufsiz ub4, htype ub4) sword
	ociLogon2             func(envhp, errhp uintptr, svchpp *uintptr, username *byte, unameLen ub4, password *byte, passwdLen ub4, dbname *byte, dbnameLen ub4, mode ub4) sword
	ociLogoff             func(svchp, errhp uintptr) sword
	ociStmtPrepare2       func(svchp uintptr, stmtpp *uintptr, errhp uintptr, stmt *byte, stmtLen ub4, key *byte, keyLen ub4, language, mode ub4) sword
	ociStmtRelease        func(stmtp, errhp uintptr, key *byte, keyLen ub4, mode ub4) sword
	ociBindByPos          func(stmtp uintptr, bindpp *uintptr, errhp uintptr, position ub4, valuep uintptr, valueSz sb4, dty ub2, indp uintptr, alenp uintptr, rcodep uintptr, maxarrLen ub4, curelep uintptr, mode ub4) sword
	ociBindByName         func(stmtp uintptr, bindpp *uintptr, errhp uintptr, placeholder *byte, placehLen sb4, valuep uintptr, valueSz sb4, dty ub2, indp uintptr, alenp uintptr, rcodep uintptr, maxarrLen ub4, curelep uintptr, mode ub4) sword
	ociBindDynamic        func(bindp, errhp, ictxp, icbfp, octxp, ocbfp uintptr) sword
	ociDefineByPos        func(stmtp uintptr, defnpp *uintptr, errhp uintptr, position ub4, valuep uintptr, valueSz sb4, dty ub2, indp uintptr, rlenp uintptr, rcodep uintptr, mode ub4) sword
	ociDefineDynamic      func(defnp, errhp, octxp, ocbfp uintptr) sword
	ociStmtExecute        func(svchp, stmtp, errhp uintptr, iters, rowoff ub4, snapIn, snapOut uintptr, mode ub4) sword
	ociStmtFetch2         func(stmtp, errhp uintptr, nrows ub4, orientation ub2, fetchOffset sb4, mode ub4) sword
	ociAttrGet            func(trgthndlp uintptr, trghndltyp ub4, attributep uintptr, sizep *ub4, attrtype ub4, errhp uintptr) sword
	ociAttrSet            func(trgthndlp uintptr, trghndltyp ub4, attributep uintptr, size ub4, attrtype ub4, errhp uintptr) sword
	ociParamGet           func(hndlp uintptr, htype ub4, errhp uintptr, parmdpp *uintptr, pos ub4) sword
	ociDescriptorAlloc    func(parenth uintptr, descpp *uintptr, dtype ub4, xtramemSz uintptr, usrmempp uintptr) sword
	ociDescriptorFree     func(descp uintptr, dtype ub4) sword
	ociDateTimeConstruct  func(hndl, errhp, datetime uintptr, year sb2, month, day, hour, min, sec ub1, fsec ub4, tz *byte, tzLen uintptr) sword
	ociDateTimeGetDate    func(hndl, errhp, datetime uintptr, year *sb2, month, day *ub1) sword
	ociDateTimeGetTime    func(hndl, errhp, datetime uintptr, hour, min, sec *ub1, fsec *ub4) sword
	ociDateTimeGetTZOff   func(hndl, errhp, datetime uintptr, hour, min *sb1) sword
	ociIntervalSetDS      func(hndl, errhp uintptr, dd, hh, mm, ss, fsec sb4, result uintptr) sword
	ociIntervalGetDS      func(hndl, errhp uintptr, dd, hh, mm, ss, fsec *sb4, result uintptr) sword
	ociIntervalSetYM      func(hndl, errhp uintptr, yr, mnth sb4, result uintptr) sword
	ociIntervalGetYM      func(hndl, errhp uintptr, yr, mnth *sb4, result uintptr) sword
	ociLobGetLength2      func(svchp, errhp, locp uintptr, lenp *ub8) sword
	ociLobRead2           func(svchp, errhp, locp uintptr, byteAmtp, charAmtp *ub8, offset ub8, bufp uintptr, bufl ub8, piece ub1, ctxp, cbfp uintptr, csid ub2, csfrm ub1) sword
	ociLobWrite2          func(svchp, errhp, locp uintptr, byteAmtp, charAmtp *ub8, offset ub8, bufp uintptr, buflen ub8, piece ub1, ctxp, cbfp uintptr, csid ub2, csfrm ub1) sword
	ociLobTrim2           func(svchp, errhp, locp uintptr, newlen ub8) sword
	ociLobCharSetForm     func(envhp, errhp, locp uintptr, csfrm *ub1) sword
	ociLobCreateTemporary func(svchp, errhp, locp uintptr, csid ub2, csfrm, lobtype ub1, cache int32, duration ub2) sword
	ociLobFreeTemporary   func(svchp, errhp, locp uintptr) sword
)

// libraryPath returns the platform-specific client library path. The
// GOOCI_LIBRARY_PATH environment variable overrides the default.
func libraryPath() string {
	if path := os.Getenv("GOOCI_LIBRARY_PATH"); path != "" {
		return path
	}

	switch runtime.GOOS {
	case "windows":
		return "oci.dll"
	case "darwin":
		paths := []string{
			"/opt/oracle/instantclient/libclntsh.dylib",
			"/usr/local/lib/libclntsh.dylib",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libclntsh.dylib"
	default:
		return "libclntsh.so"
	}
}

// initOCI loads the client library and registers every function used by
// NativeLibrary. It runs once per process.
func initOCI() error {
	initOnce.Do(func() {
		path := libraryPath()
		ociLib, initErr = loadOCILibrary(path)
		if initErr != nil {
			initErr = fmt.Errorf("failed to load OCI library %q: %w (set GOOCI_LIBRARY_PATH to override)", path, initErr)
			return
		}

		// environment and sessions
		purego.RegisterLibFunc(&ociEnvNlsCreate, ociLib, "OCIEnvNlsCreate")
		purego.RegisterLibFunc(&ociHandleAlloc, ociLib, "OCIHandleAlloc")
		purego.RegisterLibFunc(&ociHandleFree, ociLib, "OCIHandleFree")
		purego.RegisterLibFunc(&ociErrorGet, ociLib, "OCIErrorGet")
		purego.RegisterLibFunc(&ociLogon2, ociLib, "OCILogon2")
		purego.RegisterLibFunc(&ociLogoff, ociLib, "OCILogoff")

		// statements, binds and defines
		purego.RegisterLibFunc(&ociStmtPrepare2, ociLib, "OCIStmtPrepare2")
		purego.RegisterLibFunc(&ociStmtRelease, ociLib, "OCIStmtRelease")
		purego.RegisterLibFunc(&ociBindByPos, ociLib, "OCIBindByPos")
		purego.RegisterLibFunc(&ociBindByName, ociLib, "OCIBindByName")
		purego.RegisterLibFunc(&ociBindDynamic, ociLib, "OCIBindDynamic")
		purego.RegisterLibFunc(&ociDefineByPos, ociLib, "OCIDefineByPos")
		purego.RegisterLibFunc(&ociDefineDynamic, ociLib, "OCIDefineDynamic")
		purego.RegisterLibFunc(&ociStmtExecute, ociLib, "OCIStmtExecute")
		purego.RegisterLibFunc(&ociStmtFetch2, ociLib, "OCIStmtFetch2")
		purego.RegisterLibFunc(&ociAttrGet, ociLib, "OCIAttrGet")
		purego.RegisterLibFunc(&ociAttrSet, ociLib, "OCIAttrSet")
		purego.RegisterLibFunc(&ociParamGet, ociLib, "OCIParamGet")

		// descriptors
		purego.RegisterLibFunc(&ociDescriptorAlloc, ociLib, "OCIDescriptorAlloc")
		purego.RegisterLibFunc(&ociDescriptorFree, ociLib, "OCIDescriptorFree")
		purego.RegisterLibFunc(&ociDateTimeConstruct, ociLib, "OCIDateTimeConstruct")
		purego.RegisterLibFunc(&ociDateTimeGetDate, ociLib, "OCIDateTimeGetDate")
		purego.RegisterLibFunc(&ociDateTimeGetTime, ociLib, "OCIDateTimeGetTime")
		purego.RegisterLibFunc(&ociDateTimeGetTZOff, ociLib, "OCIDateTimeGetTimeZoneOffset")
		purego.RegisterLibFunc(&ociIntervalSetDS, ociLib, "OCIIntervalSetDaySecond")
		purego.RegisterLibFunc(&ociIntervalGetDS, ociLib, "OCIIntervalGetDaySecond")
		purego.RegisterLibFunc(&ociIntervalSetYM, ociLib, "OCIIntervalSetYearMonth")
		purego.RegisterLibFunc(&ociIntervalGetYM, ociLib, "OCIIntervalGetYearMonth")

		// LOBs
		purego.RegisterLibFunc(&ociLobGetLength2, ociLib, "OCILobGetLength2")
		purego.RegisterLibFunc(&ociLobRead2, ociLib, "OCILobRead2")
		purego.RegisterLibFunc(&ociLobWrite2, ociLib, "OCILobWrite2")
		purego.RegisterLibFunc(&ociLobTrim2, ociLib, "OCILobTrim2")
		purego.RegisterLibFunc(&ociLobCharSetForm, ociLib, "OCILobCharSetForm")
		purego.RegisterLibFunc(&ociLobCreateTemporary, ociLib, "OCILobCreateTemporary")
		purego.RegisterLibFunc(&ociLobFreeTemporary, ociLib, "OCILobFreeTemporary")

		registerCallbacks()
	})
	return initErr
}
