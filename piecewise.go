package oci

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// pieceState is the transfer state of one piecewise value
type pieceState int

const (
	pieceNotStarted pieceState = iota
	pieceInProgress
	pieceDone
)

func (s pieceState) String() string {
	switch s {
	case pieceNotStarted:
		return "not started"
	case pieceInProgress:
		return "in progress"
	case pieceDone:
		return "done"
	}
	return fmt.Sprintf("pieceState(%d)", int(s))
}

// pieceTracker enforces the piece protocol for one value: a single
// PieceOne, or PieceFirst followed by any number of PieceNext and exactly
// one PieceLast. It also counts the bytes transferred.
type pieceTracker struct {
	state  pieceState
	offset int64
}

func (t *pieceTracker) advance(p Piece, n int) error {
	next := t.state
	switch {
	case t.state == pieceNotStarted && p == PieceOne:
		next = pieceDone
	case t.state == pieceNotStarted && p == PieceFirst:
		next = pieceInProgress
	case t.state == pieceInProgress && p == PieceNext:
	case t.state == pieceInProgress && p == PieceLast:
		next = pieceDone
	default:
		return &StateError{Op: "piece " + p.String(), State: "value transfer " + t.state.String()}
	}
	t.state = next
	t.offset += int64(n)
	return nil
}

func (t *pieceTracker) reset() {
	t.state = pieceNotStarted
	t.offset = 0
}

// pieceSource yields the bytes of one input value in chunks
type pieceSource interface {
	// next fills buf and reports whether this was the final chunk
	next(buf []byte) (n int, last bool, err error)
}

type bytesSource struct {
	data []byte
	off  int
}

func (s *bytesSource) next(buf []byte) (int, bool, error) {
	n := copy(buf, s.data[s.off:])
	s.off += n
	return n, s.off >= len(s.data), nil
}

// readerSource chunks a stream and peeks one byte ahead so the final
// chunk can be tagged before the stream reports EOF.
type readerSource struct {
	r *bufio.Reader
}

func newReaderSource(r io.Reader) *readerSource {
	return &readerSource{r: bufio.NewReader(r)}
}

func (s *readerSource) next(buf []byte) (int, bool, error) {
	n, err := io.ReadFull(s.r, buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		return n, true, nil
	default:
		return n, false, errors.Wrap(err, "oci: piecewise source")
	}
	if _, err := s.r.Peek(1); err == io.EOF {
		return n, true, nil
	} else if err != nil {
		return n, false, errors.Wrap(err, "oci: piecewise source")
	}
	return n, false, nil
}

// piecewise is the buffer behind a dynamic bind or define. It implements
// InputProvider and OutputProvider; the library calls it once per piece
// during Execute or Fetch. Indicators and return codes live in the
// owning slot's column so they stay in step with the element count.
type piecewise struct {
	col       *column
	pieceSize int
	values    [][]byte
	readers   []io.Reader

	// input side
	inElem  int
	inSrc   pieceSource
	inBuf   []byte
	inTrack pieceTracker
	inErr   error

	// output side
	outElem  int
	outLen   uint32
	outTrack pieceTracker
	outErr   error
}

func newPiecewise(col *column, pieceSize int) *piecewise {
	return &piecewise{
		col:       col,
		pieceSize: pieceSize,
		values:    make([][]byte, col.len()),
		readers:   make([]io.Reader, col.len()),
		inElem:    -1,
		outElem:   -1,
	}
}

func (p *piecewise) resize(n int) {
	for len(p.values) < n {
		p.values = append(p.values, nil)
		p.readers = append(p.readers, nil)
	}
	p.values = p.values[:n]
	p.readers = p.readers[:n]
}

// elemIndex maps a callback's iteration and PL/SQL array index to an
// element. At most one of them is non-zero for a given bind.
func elemIndex(iteration, index uint32) int {
	return int(iteration + index)
}

// ProvideInput returns the next piece of the current element's value. The
// first failure is kept and reported again by finishInput.
func (p *piecewise) ProvideInput(iteration, index uint32) (InputPiece, error) {
	in, err := p.provideInput(iteration, index)
	if err != nil && p.inErr == nil {
		p.inErr = err
	}
	return in, err
}

func (p *piecewise) provideInput(iteration, index uint32) (InputPiece, error) {
	elem := elemIndex(iteration, index)
	if elem < 0 || elem >= len(p.values) {
		return InputPiece{}, &StateError{Op: "ProvideInput", State: fmt.Sprintf("no element %d", elem)}
	}
	if elem != p.inElem || p.inTrack.state == pieceDone {
		p.startInput(elem)
	}
	if p.col.isNull(elem) {
		if err := p.inTrack.advance(PieceOne, 0); err != nil {
			return InputPiece{}, err
		}
		return InputPiece{Piece: PieceOne, Indicator: IndicatorNull}, nil
	}
	if cap(p.inBuf) < p.pieceSize {
		p.inBuf = make([]byte, p.pieceSize)
	}
	buf := p.inBuf[:p.pieceSize]
	n, last, err := p.inSrc.next(buf)
	if err != nil {
		return InputPiece{}, err
	}
	piece := PieceNext
	switch {
	case p.inTrack.state == pieceNotStarted && last:
		piece = PieceOne
	case p.inTrack.state == pieceNotStarted:
		piece = PieceFirst
	case last:
		piece = PieceLast
	}
	if err := p.inTrack.advance(piece, n); err != nil {
		return InputPiece{}, err
	}
	return InputPiece{Data: buf[:n], Piece: piece, Indicator: IndicatorNotNull}, nil
}

func (p *piecewise) startInput(elem int) {
	p.inElem = elem
	p.inTrack.reset()
	if r := p.readers[elem]; r != nil {
		p.inSrc = newReaderSource(r)
	} else {
		p.inSrc = &bytesSource{data: p.values[elem]}
	}
}

// ProvideOutput hands the library a window at the end of the current
// element's value. The length the library wrote into the previous window
// is committed first.
func (p *piecewise) ProvideOutput(iteration, index uint32, piece Piece) (OutputPiece, error) {
	elem := elemIndex(iteration, index)
	if elem < 0 || elem >= len(p.values) {
		p.outErr = &StateError{Op: "ProvideOutput", State: fmt.Sprintf("no element %d", elem)}
		return OutputPiece{}, p.outErr
	}
	if elem != p.outElem || piece == PieceFirst || piece == PieceOne {
		p.commitOutput()
		p.outElem = elem
		p.outTrack.reset()
		p.values[elem] = p.values[elem][:0]
		piece = PieceFirst
	} else {
		p.commitWindow()
		piece = PieceNext
	}
	if err := p.outTrack.advance(piece, 0); err != nil {
		p.outErr = err
		return OutputPiece{}, err
	}
	v := p.values[elem]
	if cap(v)-len(v) < p.pieceSize {
		grown := make([]byte, len(v), len(v)+max(p.pieceSize, cap(v)))
		copy(grown, v)
		v = grown
		p.values[elem] = v
	}
	window := v[len(v) : len(v)+p.pieceSize]
	p.outLen = uint32(len(window))
	p.col.ind[elem] = int16(IndicatorNotNull)
	p.col.codes[elem] = 0
	return OutputPiece{
		Buf:        window,
		Length:     &p.outLen,
		Piece:      piece,
		Indicator:  &p.col.ind[elem],
		ReturnCode: &p.col.codes[elem],
	}, nil
}

// commitWindow extends the current value by the bytes the library wrote
// into the last window
func (p *piecewise) commitWindow() {
	if p.outElem < 0 {
		return
	}
	v := p.values[p.outElem]
	n := min(int(p.outLen), cap(v)-len(v), p.pieceSize)
	p.values[p.outElem] = v[:len(v)+n]
	p.outLen = 0
}

// commitOutput finishes the element in progress
func (p *piecewise) commitOutput() {
	if p.outElem < 0 || p.outTrack.state != pieceInProgress {
		return
	}
	p.commitWindow()
	p.outTrack.advance(PieceLast, 0)
}

// finishOutput is called once Execute or Fetch returns. It commits the
// final window and reports any protocol error raised during the call.
func (p *piecewise) finishOutput() error {
	p.commitOutput()
	p.outElem = -1
	err := p.outErr
	p.outErr = nil
	return err
}

// beginOutput prepares for a new Execute or Fetch. Input values stay in
// place; an element is only cleared when its first output piece arrives.
func (p *piecewise) beginOutput() {
	p.outElem = -1
	p.outErr = nil
}

// finishInput verifies that the value in flight was completed
func (p *piecewise) finishInput() error {
	defer func() {
		p.inElem = -1
		p.inSrc = nil
		p.inErr = nil
	}()
	if p.inErr != nil {
		return p.inErr
	}
	if p.inElem >= 0 && p.inTrack.state == pieceInProgress {
		return &StateError{Op: "Execute", State: fmt.Sprintf("piecewise value %d not completed", p.inElem)}
	}
	return nil
}

// setValue stores a complete value for element i
func (p *piecewise) setValue(i int, b []byte) {
	p.values[i] = bytes.Clone(b)
	p.readers[i] = nil
}

func (p *piecewise) setReader(i int, r io.Reader) {
	p.values[i] = nil
	p.readers[i] = r
}
