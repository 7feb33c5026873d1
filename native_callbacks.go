package oci

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Callback return codes
const (
	ociContinue int32 = -24200
	ociError    int32 = -1
)

// The library calls back through three process-wide trampolines. The
// context pointer registered with each bind or define is its own handle,
// which selects the provider in the registry.
var (
	inBindCallback  uintptr
	outBindCallback uintptr
	defineCallback  uintptr

	callbacksMu sync.Mutex
	callbacks   = make(map[Handle]*callbackTarget)
)

type callbackTarget struct {
	lib *NativeLibrary
	pin *runtime.Pinner
	in  InputProvider
	out OutputProvider

	ind    int16 // indicator handed out with input pieces
	pieces piecePins
}

// piecePins holds the buffers of the value currently in transfer. They are
// released when the next value starts, so a long fetch keeps at most one
// value's windows pinned per target.
type piecePins struct {
	p runtime.Pinner
	n int
}

func (pp *piecePins) pin(v any) {
	pp.p.Pin(v)
	pp.n++
}

func (pp *piecePins) unpin() {
	pp.p.Unpin()
	pp.n = 0
}

func (pp *piecePins) slice(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	pp.pin(&b[0])
	return uintptr(unsafe.Pointer(&b[0]))
}

func registerCallbacks() {
	inBindCallback = purego.NewCallback(inBindTrampoline)
	outBindCallback = purego.NewCallback(outBindTrampoline)
	defineCallback = purego.NewCallback(defineTrampoline)
}

func registerCallback(h Handle, t *callbackTarget) {
	t.pin.Pin(t)
	callbacksMu.Lock()
	if old, ok := callbacks[h]; ok {
		old.pieces.unpin()
	}
	callbacks[h] = t
	callbacksMu.Unlock()
}

func unregisterCallback(h Handle) {
	callbacksMu.Lock()
	if t, ok := callbacks[h]; ok {
		t.pieces.unpin()
		delete(callbacks, h)
	}
	callbacksMu.Unlock()
}

func lookupCallback(ctx uintptr) *callbackTarget {
	callbacksMu.Lock()
	defer callbacksMu.Unlock()
	return callbacks[Handle(ctx)]
}

func cbResult(code int32) uintptr { return uintptr(uint32(code)) }

func putPtr(dst uintptr, v uintptr) { *(*uintptr)(unsafe.Pointer(dst)) = v }

// inBindTrampoline answers OCICallbackInBind
func inBindTrampoline(ctx, bindp, iter, index, bufpp, alenp, piecep, indpp uintptr) uintptr {
	t := lookupCallback(ctx)
	if t == nil || t.in == nil {
		return cbResult(ociError)
	}
	p, err := t.in.ProvideInput(uint32(iter), uint32(index))
	if err != nil {
		t.lib.fail(err)
		return cbResult(ociError)
	}
	// the previous piece was consumed before the library asked again
	t.pieces.unpin()
	t.ind = int16(p.Indicator)
	putPtr(bufpp, t.pieces.slice(p.Data))
	*(*uint32)(unsafe.Pointer(alenp)) = uint32(len(p.Data))
	*(*uint8)(unsafe.Pointer(piecep)) = uint8(p.Piece)
	putPtr(indpp, uintptr(unsafe.Pointer(&t.ind)))
	return cbResult(ociContinue)
}

// outBindTrampoline answers OCICallbackOutBind
func outBindTrampoline(ctx, bindp, iter, index, bufpp, alenpp, piecep, indpp, rcodepp uintptr) uintptr {
	return provideOutput(lookupCallback(ctx), uint32(iter), uint32(index), bufpp, alenpp, piecep, indpp, rcodepp)
}

// defineTrampoline answers OCICallbackDefine
func defineTrampoline(ctx, defnp, iter, bufpp, alenpp, piecep, indpp, rcodepp uintptr) uintptr {
	return provideOutput(lookupCallback(ctx), uint32(iter), 0, bufpp, alenpp, piecep, indpp, rcodepp)
}

func provideOutput(t *callbackTarget, iter, index uint32, bufpp, alenpp, piecep, indpp, rcodepp uintptr) uintptr {
	if t == nil || t.out == nil {
		return cbResult(ociError)
	}
	hint := Piece(*(*uint8)(unsafe.Pointer(piecep)))
	p, err := t.out.ProvideOutput(iter, index, hint)
	if err != nil {
		t.lib.fail(err)
		return cbResult(ociError)
	}
	if hint == PieceFirst || hint == PieceOne {
		t.pieces.unpin()
	}
	t.pieces.pin(p.Length)
	t.pieces.pin(p.Indicator)
	t.pieces.pin(p.ReturnCode)
	putPtr(bufpp, t.pieces.slice(p.Buf))
	putPtr(alenpp, uintptr(unsafe.Pointer(p.Length)))
	*(*uint8)(unsafe.Pointer(piecep)) = uint8(p.Piece)
	putPtr(indpp, uintptr(unsafe.Pointer(p.Indicator)))
	putPtr(rcodepp, uintptr(unsafe.Pointer(p.ReturnCode)))
	return cbResult(ociContinue)
}
