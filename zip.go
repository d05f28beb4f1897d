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

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// flateWriters recycles deflate state across channel tasks; resetting a
// writer is far cheaper than building its tables from scratch.
var flateWriters = sync.Pool{
	New: func() any {
		fw, _ := flate.NewWriter(io.Discard, flate.DefaultCompression)
		return fw
	},
}

// zlibHeader is the fixed 2-byte stream prefix: deflate method,
// default compression level, no preset dictionary.
var zlibHeader = []byte{0x78, 0x9C}

// deflateBytes compresses data behind the fixed 2-byte header. Empty
// input produces an empty stream with no header at all.
func deflateBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	buf.Write(zlibHeader)
	fw := flateWriters.Get().(*flate.Writer)
	fw.Reset(&buf)
	if _, err := fw.Write(data); err != nil {
		flateWriters.Put(fw)
		return nil, err
	}
	if err := fw.Close(); err != nil {
		flateWriters.Put(fw)
		return nil, err
	}
	flateWriters.Put(fw)
	return buf.Bytes(), nil
}

// inflateBytes skips the 2-byte header and inflates exactly size bytes.
// Anything after the final deflate block (checksum trailers from other
// producers) is ignored.
func inflateBytes(data []byte, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("psd: zip stream too short: %w", ErrCorruptData)
	}
	fr := flate.NewReader(bytes.NewReader(data[2:]))
	defer fr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, fmt.Errorf("psd: inflate: %w", ErrCorruptData)
	}
	return out, nil
}

// zipCodec is plain deflate over the stored byte order. The endianness
// decorator handles word flipping at depths 16/32.
type zipCodec struct{}

func (zipCodec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	return inflateBytes(compressed, rawSize(rect, depth))
}

func (zipCodec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	return deflateBytes(raw)
}

// zipPredict16Codec is deflate over horizontally differenced 16-bit
// rows. Valid only at depth 16.
type zipPredict16Codec struct{}

func (zipPredict16Codec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	be, err := inflateBytes(compressed, rawSize(rect, depth))
	if err != nil {
		return nil, err
	}
	return unpredict16(be, rect.Width(), rect.Height()), nil
}

func (zipPredict16Codec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	return deflateBytes(predict16(raw, rect.Width(), rect.Height()))
}

// zipPredict32Codec is deflate over rows split into four delta-coded
// byte planes, most significant plane first. Valid only at depth 32.
type zipPredict32Codec struct{}

func (zipPredict32Codec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	planes, err := inflateBytes(compressed, rawSize(rect, depth))
	if err != nil {
		return nil, err
	}
	return unpredict32(planes, rect.Width(), rect.Height()), nil
}

func (zipPredict32Codec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	return deflateBytes(predict32(raw, rect.Width(), rect.Height()))
}

// unpredict16 undoes per-row horizontal differencing on big-endian
// 16-bit words, emitting native little-endian word order.
func unpredict16(src []byte, width, rows int) []byte {
	out := make([]byte, len(src))
	for y := 0; y < rows; y++ {
		base := y * width * 2
		var prev uint16
		for x := 0; x < width; x++ {
			v := binary.BigEndian.Uint16(src[base+2*x:])
			if x > 0 {
				v += prev
			}
			prev = v
			binary.LittleEndian.PutUint16(out[base+2*x:], v)
		}
	}
	return out
}

// predict16 is the inverse: difference little-endian rows left to
// right and emit big-endian words for compression.
func predict16(src []byte, width, rows int) []byte {
	out := make([]byte, len(src))
	for y := 0; y < rows; y++ {
		base := y * width * 2
		var prev uint16
		for x := 0; x < width; x++ {
			v := binary.LittleEndian.Uint16(src[base+2*x:])
			d := v
			if x > 0 {
				d = v - prev
			}
			prev = v
			binary.BigEndian.PutUint16(out[base+2*x:], d)
		}
	}
	return out
}

// unpredict32 undoes byte-wise differencing within each of a row's four
// byte planes, then gathers each pixel's bytes into a little-endian
// 32-bit word.
func unpredict32(src []byte, width, rows int) []byte {
	out := make([]byte, len(src))
	rowLen := width * 4
	plane := make([]byte, rowLen)
	for y := 0; y < rows; y++ {
		copy(plane, src[y*rowLen:(y+1)*rowLen])
		for p := 0; p < 4; p++ {
			for x := 1; x < width; x++ {
				plane[p*width+x] += plane[p*width+x-1]
			}
		}
		for x := 0; x < width; x++ {
			o := y*rowLen + 4*x
			out[o] = plane[3*width+x]
			out[o+1] = plane[2*width+x]
			out[o+2] = plane[1*width+x]
			out[o+3] = plane[0*width+x]
		}
	}
	return out
}

// predict32 scatters little-endian 32-bit words into four byte planes
// per row, most significant first, then differences each plane.
func predict32(src []byte, width, rows int) []byte {
	out := make([]byte, len(src))
	rowLen := width * 4
	for y := 0; y < rows; y++ {
		row := out[y*rowLen : (y+1)*rowLen]
		for x := 0; x < width; x++ {
			o := y*rowLen + 4*x
			row[0*width+x] = src[o+3]
			row[1*width+x] = src[o+2]
			row[2*width+x] = src[o+1]
			row[3*width+x] = src[o]
		}
		for p := 0; p < 4; p++ {
			for x := width - 1; x > 0; x-- {
				row[p*width+x] -= row[p*width+x-1]
			}
		}
	}
	return out
}
