package psd

import (
	"encoding/binary"
	"unicode/utf16"
)

// reader is a cursor over a fully buffered file. All scalar reads are
// big-endian regardless of host order. A read past the end returns a
// *FormatError carrying the cursor offset; the cursor does not advance
// past the end.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) truncErr() error {
	return &FormatError{Offset: int64(r.pos), Err: ErrTruncatedData}
}

func (r *reader) Pos() int { return r.pos }

func (r *reader) Remaining() int { return len(r.data) - r.pos }

// SeekTo repositions the cursor, clamping to the buffer bounds. Used to
// skip past the declared end of a record regardless of how much of it
// was consumed.
func (r *reader) SeekTo(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(r.data) {
		off = len(r.data)
	}
	r.pos = off
}

func (r *reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return r.truncErr()
	}
	r.pos += n
	return nil
}

func (r *reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.truncErr()
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns a copy of the next n bytes, so decoded documents
// never alias the input buffer.
func (r *reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.truncErr()
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:])
	r.pos += n
	return out, nil
}

func (r *reader) ReadString(n int) (string, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return "", r.truncErr()
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, r.truncErr()
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, r.truncErr()
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *reader) ReadUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, r.truncErr()
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadLength reads a section length: 4 bytes in PSD files, 8 bytes in
// PSB files for the fields the large-document revision widened.
func (r *reader) ReadLength(wide bool) (int64, error) {
	if wide {
		return r.ReadInt64()
	}
	v, err := r.ReadUint32()
	return int64(v), err
}

// ReadPascalString reads a 1-byte-length-prefixed string padded with
// zero bytes so the total size (length byte included) is a multiple of
// padTo. Resource names use padTo 2, layer names padTo 4.
func (r *reader) ReadPascalString(padTo int) (string, error) {
	start := r.pos
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	s, err := r.ReadString(int(n))
	if err != nil {
		return "", err
	}
	for (r.pos-start)%padTo != 0 {
		if err := r.Skip(1); err != nil {
			return "", err
		}
	}
	return s, nil
}

// ReadUnicodeString reads a UTF-16BE string with a 4-byte character
// count prefix. No padding is consumed; alignment rules belong to the
// surrounding record.
func (r *reader) ReadUnicodeString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n)*2 > len(r.data) {
		return "", r.truncErr()
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(r.data[r.pos+2*i:])
	}
	r.pos += int(n) * 2
	return string(utf16.Decode(units)), nil
}
