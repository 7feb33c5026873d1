package oci

import (
	"io"

	"github.com/pkg/errors"
)

// lobChunk is the buffer size used by ReadAll
const lobChunk = 32768

// Lob is a stream over a LOB locator held by a bind or define element.
// Offsets are 0-based and counted in characters for CLOBs and bytes for
// BLOBs and BFILEs. Nothing is read from the library until the stream is
// used. A Lob stays valid while its statement is open and its element
// exists; the locator is overwritten by the next fetch into the same
// element.
type Lob struct {
	stmt   *Statement
	handle Handle
	wire   WireType
	form   CharsetForm
	kind   LobKind
	off    uint64
}

var _ io.ReadWriteSeeker = (*Lob)(nil)

func newLob(s *Statement, h Handle, wire WireType, form CharsetForm) *Lob {
	kind := LobBlob
	if wire == WireClob {
		kind = LobClob
	}
	return &Lob{stmt: s, handle: h, wire: wire, form: form, kind: kind}
}

// checkOpen fails once the statement is closed or the locator was freed
// with the element that held it
func (l *Lob) checkOpen(op string) error {
	if err := l.stmt.checkOpen(op); err != nil {
		return err
	}
	if _, ok := l.stmt.descriptors[l.handle]; !ok {
		return &StateError{Op: op, State: "LOB locator freed"}
	}
	return nil
}

// Handle returns the LOB locator
func (l *Lob) Handle() Handle { return l.handle }

// Kind returns LobClob for character LOBs and LobBlob otherwise
func (l *Lob) Kind() LobKind { return l.kind }

// WireType returns the wire type of the element the locator came from
func (l *Lob) WireType() WireType { return l.wire }

// Len returns the length of the LOB in offset units
func (l *Lob) Len() (int64, error) {
	if err := l.checkOpen("Lob.Len"); err != nil {
		return 0, err
	}
	n, st := l.stmt.lib.LobLength(l.handle)
	if err := checkStatus(l.stmt.lib, "OCILobGetLength2", st); err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Read reads the next bytes of the LOB. It returns io.EOF at the end.
func (l *Lob) Read(p []byte) (int, error) {
	if err := l.checkOpen("Lob.Read"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, units, st := l.stmt.lib.LobRead(l.handle, l.off+1, p)
	if st == StatusNoData {
		return 0, io.EOF
	}
	if err := checkStatus(l.stmt.lib, "OCILobRead2", st); err != nil {
		return 0, err
	}
	l.off += units
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes p at the current offset. For CLOBs p must be encoded in
// the LOB's character set.
func (l *Lob) Write(p []byte) (int, error) {
	if err := l.checkOpen("Lob.Write"); err != nil {
		return 0, err
	}
	if l.wire == WireBFile {
		return 0, &StateError{Op: "Lob.Write", State: "BFILE is read-only"}
	}
	if len(p) == 0 {
		return 0, nil
	}
	units, st := l.stmt.lib.LobWrite(l.handle, l.off+1, p)
	if err := checkStatus(l.stmt.lib, "OCILobWrite2", st); err != nil {
		return 0, err
	}
	l.off += units
	return len(p), nil
}

// Seek sets the offset for the next Read or Write
func (l *Lob) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(l.off)
	case io.SeekEnd:
		n, err := l.Len()
		if err != nil {
			return 0, err
		}
		base = n
	default:
		return 0, argumentError("Lob.Seek", "whence", "invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, argumentError("Lob.Seek", "offset", "negative position %d", pos)
	}
	l.off = uint64(pos)
	return pos, nil
}

// Truncate cuts the LOB to n offset units
func (l *Lob) Truncate(n int64) error {
	if err := l.checkOpen("Lob.Truncate"); err != nil {
		return err
	}
	if n < 0 {
		return argumentError("Lob.Truncate", "length", "negative length %d", n)
	}
	if err := checkStatus(l.stmt.lib, "OCILobTrim2", l.stmt.lib.LobTrim(l.handle, uint64(n))); err != nil {
		return err
	}
	l.off = min(l.off, uint64(n))
	return nil
}

// ReadAll rewinds the stream and reads the whole LOB
func (l *Lob) ReadAll() ([]byte, error) {
	if _, err := l.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, lobChunk)
	chunk := make([]byte, lobChunk)
	for {
		n, err := l.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s at offset %d", l.wire, l.off)
		}
	}
}
