package bytes

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxLength is the largest number of characters (bytes) in a string or elements
// in a list that may be read from or written to a payload.
const MaxLength = 1024

var (
	// ErrShortBuffer is returned when a payload ends before a field is complete.
	ErrShortBuffer = errors.New("payload too short")
	// ErrTooLong is returned when a declared length exceeds MaxLength.
	ErrTooLong = errors.New("declared length exceeds maximum")
)

// Writer serializes fields in little endian order into a growing buffer.
type Writer struct {
	buf []byte
	err error
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the serialized contents.
func (w *Writer) Bytes() []byte { return w.buf }

// Err returns the first error encountered while writing, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *Writer) Uint16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) Uint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) Uint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) Int32(v int32)   { w.Uint32(uint32(v)) }
func (w *Writer) Int64(v int64)   { w.Uint64(uint64(v)) }

// Length writes a uint16 element count, recording ErrTooLong if n > MaxLength.
func (w *Writer) Length(n int) {
	if n > MaxLength {
		if w.err == nil {
			w.err = fmt.Errorf("%w: %d", ErrTooLong, n)
		}
		n = 0
	}
	w.Uint16(uint16(n))
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) {
	if len(s) > MaxLength {
		w.Length(len(s))
		return
	}
	w.Length(len(s))
	w.buf = append(w.buf, s...)
}

// Blob writes a length-prefixed byte slice.
func (w *Writer) Blob(b []byte) {
	if len(b) > MaxLength {
		w.Length(len(b))
		return
	}
	w.Length(len(b))
	w.buf = append(w.buf, b...)
}

// Strings writes a length-prefixed list of strings.
func (w *Writer) Strings(list []string) {
	w.Length(len(list))
	if len(list) > MaxLength {
		return
	}
	for _, s := range list {
		w.String(s)
	}
}

// Uint32s writes a length-prefixed list of uint32 values.
func (w *Writer) Uint32s(list []uint32) {
	w.Length(len(list))
	if len(list) > MaxLength {
		return
	}
	for _, v := range list {
		w.Uint32(v)
	}
}

// Reader deserializes little endian fields from a payload. Lengths are checked
// against MaxLength before anything is allocated.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	return v != 0, err
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Length reads a uint16 element count and rejects values above MaxLength.
func (r *Reader) Length() (int, error) {
	n, err := r.Uint16()
	if err != nil {
		return 0, err
	}
	if int(n) > MaxLength {
		return 0, fmt.Errorf("%w: %d", ErrTooLong, n)
	}
	return int(n), nil
}

func (r *Reader) String() (string, error) {
	b, err := r.Blob()
	return string(b), err
}

// Blob reads a length-prefixed byte slice into a fresh copy.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) Strings() ([]string, error) {
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func (r *Reader) Uint32s() ([]uint32, error) {
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	// Each element needs 4 bytes; refuse before allocating if the payload can't hold them.
	if r.Remaining() < n*4 {
		return nil, fmt.Errorf("%w: list of %d uint32 values", ErrShortBuffer, n)
	}
	list := make([]uint32, n)
	for i := range list {
		list[i], _ = r.Uint32()
	}
	return list, nil
}

// StripPadding returns a slice of b without the trailing 0s.
func StripPadding(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return b[:i+1]
		}
	}
	return []byte{}
}
