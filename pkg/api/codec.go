package api

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Kelvintronic/inhabited/internal/core/types"
)

// MaxStringLen bounds every length-prefixed string on the wire.
const MaxStringLen = 1024

var (
	ErrShortBuffer    = errors.New("short buffer")
	ErrStringTooLong  = errors.New("string too long")
	ErrUnknownPacket  = errors.New("unknown packet")
	ErrInvalidPacket  = errors.New("invalid packet")
	ErrTrailingBytes  = errors.New("trailing bytes after packet")
	ErrCountOverflow  = errors.New("element count exceeds payload")
	errNegativeLength = errors.New("negative element count")
)

var le = binary.LittleEndian

// Writer appends little endian fields to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }
func (w *Writer) Reset()        { w.buf = w.buf[:0] }

func (w *Writer) PutByte(v byte) { w.buf = append(w.buf, v) }

func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) PutUint16(v uint16)   { w.buf = le.AppendUint16(w.buf, v) }
func (w *Writer) PutUint32(v uint32)   { w.buf = le.AppendUint32(w.buf, v) }
func (w *Writer) PutInt32(v int32)     { w.buf = le.AppendUint32(w.buf, uint32(v)) }
func (w *Writer) PutFloat32(v float32) { w.buf = le.AppendUint32(w.buf, math.Float32bits(v)) }

func (w *Writer) PutVector(v types.WorldVector) {
	w.PutFloat32(v.X)
	w.PutFloat32(v.Y)
}

// PutString writes a uint16 byte length followed by the UTF-8 bytes.
// Strings longer than MaxStringLen are truncated at a rune boundary.
func (w *Writer) PutString(s string) {
	if len(s) > MaxStringLen {
		cut := MaxStringLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	w.PutUint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader consumes fields written by Writer. The first failure sticks:
// later reads return zero values and Err reports the original cause.
type Reader struct {
	data []byte
	pos  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, r.pos, r.Remaining(), ErrShortBuffer)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.Byte() != 0 }

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return le.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return le.Uint32(b)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }

func (r *Reader) Vector() types.WorldVector {
	x := r.Float32()
	y := r.Float32()
	return types.WorldVector{X: x, Y: y}
}

func (r *Reader) Text() string {
	n := int(r.Uint16())
	if r.err == nil && n > MaxStringLen {
		r.err = fmt.Errorf("length %d: %w", n, ErrStringTooLong)
		return ""
	}
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Count reads an int32 element count and checks it against the bytes
// left, given the minimum encoded size of one element.
func (r *Reader) Count(minElemSize int) int {
	n := int(r.Int32())
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.err = errNegativeLength
		return 0
	}
	if minElemSize > 0 && n > r.Remaining()/minElemSize {
		r.err = fmt.Errorf("%d elements of %d bytes, %d left: %w", n, minElemSize, r.Remaining(), ErrCountOverflow)
		return 0
	}
	return n
}
