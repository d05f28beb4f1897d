package psd

import (
	"bytes"
	"fmt"
)

// CompressionMethod identifies one of the four channel compression
// schemes, using the on-disk tag values.
type CompressionMethod uint16

const (
	CompressionRaw           CompressionMethod = 0
	CompressionRLE           CompressionMethod = 1
	CompressionZip           CompressionMethod = 2
	CompressionZipPrediction CompressionMethod = 3
)

func (m CompressionMethod) String() string {
	switch m {
	case CompressionRaw:
		return "Raw"
	case CompressionRLE:
		return "RLE"
	case CompressionZip:
		return "Zip"
	case CompressionZipPrediction:
		return "ZipPrediction"
	}
	return fmt.Sprintf("CompressionMethod(%d)", uint16(m))
}

// Rect is a channel or layer bounding rectangle in canvas coordinates.
type Rect struct {
	Top, Left, Bottom, Right int32
}

func (r Rect) Width() int  { return int(r.Right) - int(r.Left) }
func (r Rect) Height() int { return int(r.Bottom) - int(r.Top) }

func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// bytesPerRow returns the decoded size of one pixel row: bit-packed at
// depth 1, whole words otherwise.
func bytesPerRow(width, depth int) int {
	if depth == 1 {
		return (width + 7) / 8
	}
	return width * (depth / 8)
}

// rawSize returns the decoded size of a whole channel plane.
func rawSize(r Rect, depth int) int {
	if r.Empty() {
		return 0
	}
	return r.Height() * bytesPerRow(r.Width(), depth)
}

// codec is the decode/encode contract shared by all four compression
// schemes. Decode output and Encode input are always exactly
// rawSize(rect, depth) bytes, with multi-byte samples in little-endian
// word order.
type codec interface {
	Decode(compressed []byte, rect Rect, depth int) ([]byte, error)
	Encode(raw []byte, rect Rect, depth int) ([]byte, error)
}

// newCodec builds the codec for a method/depth pair, applying the
// endianness-reversal decorator where stored big-endian samples must be
// flipped to native word order. Unsupported combinations fail here,
// before any payload byte is touched. wideCounts selects 32-bit RLE
// row counts (PSB) over 16-bit ones (PSD).
func newCodec(method CompressionMethod, depth int, wideCounts bool) (codec, error) {
	switch method {
	case CompressionRaw:
		return wrapEndian(rawCodec{}, depth), nil
	case CompressionRLE:
		return rleCodec{wideCounts: wideCounts}, nil
	case CompressionZip:
		return wrapEndian(zipCodec{}, depth), nil
	case CompressionZipPrediction:
		switch depth {
		case 16:
			return zipPredict16Codec{}, nil
		case 32:
			return zipPredict32Codec{}, nil
		}
		return nil, &UnsupportedFeatureError{
			Feature: fmt.Sprintf("zip prediction at bit depth %d", depth),
		}
	}
	return nil, &UnsupportedFeatureError{
		Feature: fmt.Sprintf("compression method %d", uint16(method)),
	}
}

// rawCodec stores the plane verbatim.
type rawCodec struct{}

func (rawCodec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	size := rawSize(rect, depth)
	if len(compressed) < size {
		return nil, fmt.Errorf("psd: raw channel has %d of %d bytes: %w", len(compressed), size, ErrCorruptData)
	}
	return bytes.Clone(compressed[:size]), nil
}

func (rawCodec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	return bytes.Clone(raw), nil
}

// endianCodec flips stored big-endian 16/32-bit samples to native
// little-endian word order after decoding, and back before encoding.
// The prediction codecs do this as part of unpacking and are never
// wrapped.
type endianCodec struct {
	inner codec
	depth int
}

func wrapEndian(inner codec, depth int) codec {
	if depth == 16 || depth == 32 {
		return endianCodec{inner: inner, depth: depth}
	}
	return inner
}

func (c endianCodec) Decode(compressed []byte, rect Rect, depth int) ([]byte, error) {
	out, err := c.inner.Decode(compressed, rect, depth)
	if err != nil {
		return nil, err
	}
	reverseByteOrder(out, c.depth)
	return out, nil
}

func (c endianCodec) Encode(raw []byte, rect Rect, depth int) ([]byte, error) {
	flipped := bytes.Clone(raw)
	reverseByteOrder(flipped, c.depth)
	return c.inner.Encode(flipped, rect, depth)
}

// reverseByteOrder swaps each 16- or 32-bit word in place.
func reverseByteOrder(b []byte, depth int) {
	switch depth {
	case 16:
		for i := 0; i+1 < len(b); i += 2 {
			b[i], b[i+1] = b[i+1], b[i]
		}
	case 32:
		for i := 0; i+3 < len(b); i += 4 {
			b[i], b[i+3] = b[i+3], b[i]
			b[i+1], b[i+2] = b[i+2], b[i+1]
		}
	}
}
