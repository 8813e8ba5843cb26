// Package wire encodes and decodes the Friend-protocol control messages
// named in spec §6, using the teacher's sticky-error BinWriter/BinReader
// pattern (mirrored from the usage shown in the teacher's pkg/io tests)
// rather than a hand-rolled one-off per message: all LPN control PDUs are
// big-endian, unlike the little-endian wire the teacher's own io package
// serializes, so the struct is reproduced here rather than reused directly.
package wire

import (
	"encoding/binary"
	"errors"
)

// BinWriter accumulates bytes and a single sticky error; once Err is set,
// every subsequent Write call is a no-op. Callers check Err once at the end
// instead of after every field.
type BinWriter struct {
	buf []byte
	Err error
}

// NewBinWriter returns an empty BinWriter.
func NewBinWriter() *BinWriter {
	return &BinWriter{}
}

// WriteB appends a single byte.
func (w *BinWriter) WriteB(v uint8) {
	if w.Err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// WriteU16BE appends a big-endian uint16.
func (w *BinWriter) WriteU16BE(v uint16) {
	if w.Err != nil {
		return
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU24BE appends the low 24 bits of v, big-endian.
func (w *BinWriter) WriteU24BE(v uint32) {
	if w.Err != nil {
		return
	}
	if v > 1<<24-1 {
		w.Err = errors.New("wire: value does not fit in 24 bits")
		return
	}
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

// WriteU32BE appends a big-endian uint32.
func (w *BinWriter) WriteU32BE(v uint32) {
	if w.Err != nil {
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteBytes appends raw bytes verbatim.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated buffer.
func (w *BinWriter) Bytes() []byte {
	return w.buf
}

// BinReader consumes bytes and a single sticky error; once Err is set every
// subsequent Read call returns the zero value.
type BinReader struct {
	buf []byte
	pos int
	Err error
}

// NewBinReader wraps buf for sequential big-endian field reads.
func NewBinReader(buf []byte) *BinReader {
	return &BinReader{buf: buf}
}

func (r *BinReader) need(n int) bool {
	if r.Err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.Err = errors.New("wire: unexpected end of payload")
		return false
	}
	return true
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

// ReadU16BE reads a big-endian uint16.
func (r *BinReader) ReadU16BE() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

// ReadU24BE reads a big-endian 24-bit value into the low bits of a uint32.
func (r *BinReader) ReadU24BE() uint32 {
	if !r.need(3) {
		return 0
	}
	v := uint32(r.buf[r.pos])<<16 | uint32(r.buf[r.pos+1])<<8 | uint32(r.buf[r.pos+2])
	r.pos += 3
	return v
}

// ReadU32BE reads a big-endian uint32.
func (r *BinReader) ReadU32BE() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

// ReadBytes reads n raw bytes.
func (r *BinReader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

// Remaining returns the number of unread bytes.
func (r *BinReader) Remaining() int {
	return len(r.buf) - r.pos
}
