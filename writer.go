package psd

import (
	"encoding/binary"
	"unicode/utf16"
)

// writer is an append-only in-memory buffer with big-endian scalar
// writes and backpatched length fields. Save composes the whole file
// here and copies it to the destination once, so a failed save never
// leaves a partially overwritten file behind.
type writer struct {
	buf []byte
}

func newWriter() *writer { return &writer{} }

func (w *writer) Bytes() []byte { return w.buf }

func (w *writer) Len() int { return len(w.buf) }

func (w *writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

func (w *writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteLength writes a section length: 4 bytes for PSD, 8 for the PSB
// widened fields.
func (w *writer) WriteLength(v int64, wide bool) {
	if wide {
		w.WriteUint64(uint64(v))
	} else {
		w.WriteUint32(uint32(v))
	}
}

// PadFrom appends zero bytes until the byte count since start is a
// multiple of align.
func (w *writer) PadFrom(start, align int) {
	for (len(w.buf)-start)%align != 0 {
		w.buf = append(w.buf, 0)
	}
}

// WritePascalString writes a 1-byte-length-prefixed string, truncating
// to 255 bytes, zero-padded so the total size including the length byte
// is a multiple of padTo.
func (w *writer) WritePascalString(s string, padTo int) {
	if len(s) > 255 {
		s = s[:255]
	}
	start := len(w.buf)
	w.WriteByte(byte(len(s)))
	w.WriteString(s)
	w.PadFrom(start, padTo)
}

// WriteUnicodeString writes a UTF-16BE string with a 4-byte character
// count prefix.
func (w *writer) WriteUnicodeString(s string) {
	units := utf16.Encode([]rune(s))
	w.WriteUint32(uint32(len(units)))
	for _, u := range units {
		w.WriteUint16(u)
	}
}

// lengthPatch marks a reserved length field awaiting its real value.
type lengthPatch struct {
	off       int // position of the length field
	bodyStart int // position the length is measured from
	wide      bool
}

// BeginLength reserves a zeroed length field and returns a patch token.
// The matching EndLength overwrites it with the number of bytes written
// since, the moral equivalent of seeking back over the placeholder.
func (w *writer) BeginLength(wide bool) lengthPatch {
	off := len(w.buf)
	w.WriteLength(0, wide)
	return lengthPatch{off: off, bodyStart: len(w.buf), wide: wide}
}

func (w *writer) EndLength(p lengthPatch) {
	n := uint64(len(w.buf) - p.bodyStart)
	if p.wide {
		binary.BigEndian.PutUint64(w.buf[p.off:], n)
	} else {
		binary.BigEndian.PutUint32(w.buf[p.off:], uint32(n))
	}
}
