// Copyright 2026 go-psd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package psd

import "fmt"

// rleCodec implements the PackBits scheme: a per-row table of encoded
// byte counts (16-bit in PSD files, 32-bit in PSB) followed by the
// concatenated per-row packet streams.
type rleCodec struct {
	wideCounts bool
}

func (c rleCodec) countSize() int {
	if c.wideCounts {
		return 4
	}
	return 2
}

func (c rleCodec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	if rect.Empty() {
		return []byte{}, nil
	}
	rows := rect.Height()
	bpr := bytesPerRow(rect.Width(), depth)

	r := newReader(compressed)
	counts := make([]int, rows)
	for i := range counts {
		n, err := c.readCount(r)
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}

	out := make([]byte, rows*bpr)
	off := r.Pos()
	for y, n := range counts {
		if off+n > len(compressed) {
			return nil, fmt.Errorf("psd: rle row %d overruns stream: %w", y, ErrCorruptData)
		}
		if err := packBitsDecodeRow(out[y*bpr:(y+1)*bpr], compressed[off:off+n]); err != nil {
			return nil, fmt.Errorf("psd: rle row %d: %w", y, err)
		}
		off += n
	}
	return out, nil
}

func (c rleCodec) readCount(r *reader) (int, error) {
	if c.wideCounts {
		n, err := r.ReadUint32()
		return int(n), err
	}
	n, err := r.ReadUint16()
	return int(n), err
}

func (c rleCodec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	if rect.Empty() {
		return []byte{}, nil
	}
	rows := rect.Height()
	bpr := bytesPerRow(rect.Width(), depth)

	enc := packBitsEncoder{}
	starts := make([]int, rows+1)
	for y := 0; y < rows; y++ {
		enc.encodeRow(raw[y*bpr : (y+1)*bpr])
		starts[y+1] = len(enc.out)
	}

	w := newWriter()
	for y := 0; y < rows; y++ {
		n := starts[y+1] - starts[y]
		if c.wideCounts {
			w.WriteUint32(uint32(n))
		} else {
			w.WriteUint16(uint16(n))
		}
	}
	w.WriteBytes(enc.out)
	return w.Bytes(), nil
}

// packBitsDecodeRow expands one row's packet stream into dst, which
// must be exactly the decoded row size. Header byte 0..127 introduces a
// literal run of header+1 bytes, 129..255 a repeat run of 257-header
// copies of the next byte, and 128 is a no-op. Trailing padding after
// the row is filled is ignored.
func packBitsDecodeRow(dst, src []byte) error {
	di, si := 0, 0
	for di < len(dst) {
		if si >= len(src) {
			return ErrCorruptData
		}
		h := src[si]
		si++
		switch {
		case h == 128:
			// no-op
		case h < 128:
			n := int(h) + 1
			if si+n > len(src) || di+n > len(dst) {
				return ErrCorruptData
			}
			copy(dst[di:di+n], src[si:si+n])
			si += n
			di += n
		default:
			n := 257 - int(h)
			if si >= len(src) || di+n > len(dst) {
				return ErrCorruptData
			}
			b := src[si]
			si++
			for i := 0; i < n; i++ {
				dst[di+i] = b
			}
			di += n
		}
	}
	return nil
}

// packBitsEncoder reproduces Photoshop's own packetLength/rlePacket
// state machine, tie-breaks included. Matching its exact packet layout
// is a compatibility contract: other consumers compare streams
// byte-for-byte against Photoshop output.
type packBitsEncoder struct {
	out    []byte
	packet [128]byte
	n      int  // pending packet length
	rle    bool // pending packet is a repeat run
}

func (e *packBitsEncoder) flush() {
	if e.n == 0 {
		return
	}
	if e.rle {
		e.out = append(e.out, byte(1-e.n), e.packet[0])
	} else {
		e.out = append(e.out, byte(e.n-1))
		e.out = append(e.out, e.packet[:e.n]...)
	}
	e.n = 0
	e.rle = false
}

// encodeRow starts fresh for every row; packets never span rows.
func (e *packBitsEncoder) encodeRow(row []byte) {
	for _, b := range row {
		switch {
		case e.n == 0:
			e.packet[0] = b
			e.n = 1
		case e.n == 1:
			// The second byte decides the packet kind.
			if b == e.packet[0] {
				e.rle = true
				e.n = 2
			} else {
				e.packet[1] = b
				e.n = 2
			}
		case e.rle:
			if b == e.packet[0] {
				e.n++
			} else {
				e.flush()
				e.packet[0] = b
				e.n = 1
			}
		default:
			if b == e.packet[e.n-1] {
				// Retract the repeated byte from the literal packet
				// and open a repeat run covering the pair.
				e.n--
				e.flush()
				e.packet[0] = b
				e.n = 2
				e.rle = true
			} else {
				e.packet[e.n] = b
				e.n++
			}
		}
		if e.n == 128 {
			e.flush()
		}
	}
	e.flush()
}
