package oci

import "math"

// column is the storage behind every bind and define: element data plus
// one indicator, actual length and return code per element. All four
// arrays always hold the same number of elements; resize is the only way
// to change that number.
type column struct {
	width   int // bytes per element
	data    []byte
	ind     []int16
	lengths []uint16
	codes   []uint16
}

func newColumn(width, n int) *column {
	c := &column{width: width}
	c.resize(n)
	return c
}

// len returns the number of elements
func (c *column) len() int { return len(c.ind) }

// resize grows or shrinks the column to n elements. Existing elements are
// preserved; new elements start null. It reports whether the backing
// arrays moved, in which case any registration with the library is stale.
func (c *column) resize(n int) (moved bool) {
	if n < 0 {
		n = 0
	}
	old := len(c.ind)
	if n <= cap(c.ind) && n*c.width <= cap(c.data) {
		c.data = c.data[:n*c.width]
		c.ind = c.ind[:n]
		c.lengths = c.lengths[:n]
		c.codes = c.codes[:n]
	} else {
		data := make([]byte, n*c.width)
		ind := make([]int16, n)
		lengths := make([]uint16, n)
		codes := make([]uint16, n)
		copy(data, c.data)
		copy(ind, c.ind)
		copy(lengths, c.lengths)
		copy(codes, c.codes)
		c.data, c.ind, c.lengths, c.codes = data, ind, lengths, codes
		moved = true
	}
	for i := old; i < n; i++ {
		clear(c.elem(i))
		c.ind[i] = int16(IndicatorNull)
		c.lengths[i] = 0
		c.codes[i] = 0
	}
	return moved
}

// elem returns the bytes of element i
func (c *column) elem(i int) []byte {
	return c.data[i*c.width : (i+1)*c.width]
}

func (c *column) indicator(i int) Indicator { return Indicator(c.ind[i]) }

func (c *column) isNull(i int) bool { return c.ind[i] == int16(IndicatorNull) }

// setNull marks element i null. The element bytes are kept, they may
// hold a descriptor handle.
func (c *column) setNull(i int) {
	c.ind[i] = int16(IndicatorNull)
	c.lengths[i] = 0
}

// store commits an encoded element: data, actual length and a not-null
// indicator are written together. Lengths saturate at 65535; longer
// elements carry their length in a 4 byte header.
func (c *column) store(i int, elem []byte, length int) {
	copy(c.elem(i), elem)
	c.ind[i] = int16(IndicatorNotNull)
	c.lengths[i] = uint16(min(length, math.MaxUint16))
	c.codes[i] = 0
}

// reset marks every element null, as before a new fetch
func (c *column) reset() {
	for i := range c.ind {
		c.ind[i] = int16(IndicatorNull)
		c.lengths[i] = 0
		c.codes[i] = 0
	}
}
