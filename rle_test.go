package psd

import (
	"bytes"
	"errors"
	"testing"
)

func encodeRow(t *testing.T, row []byte) []byte {
	t.Helper()
	e := packBitsEncoder{}
	e.encodeRow(row)
	return e.out
}

func decodeRow(t *testing.T, src []byte, size int) []byte {
	t.Helper()
	dst := make([]byte, size)
	if err := packBitsDecodeRow(dst, src); err != nil {
		t.Fatalf("packBitsDecodeRow: %v", err)
	}
	return dst
}

// --- PackBits Packet Tests ---

func TestPackBitsRepeatRun(t *testing.T) {
	row := []byte{7, 7, 7, 7, 7}
	enc := encodeRow(t, row)
	want := []byte{0xFC, 0x07}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode: got % X, want % X", enc, want)
	}
	if got := decodeRow(t, enc, 5); !bytes.Equal(got, row) {
		t.Errorf("decode: got %v, want %v", got, row)
	}
}

func TestPackBitsLiteralRun(t *testing.T) {
	row := []byte{10, 20, 30}
	enc := encodeRow(t, row)
	want := []byte{0x02, 10, 20, 30}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode: got % X, want % X", enc, want)
	}
	if got := decodeRow(t, enc, 3); !bytes.Equal(got, row) {
		t.Errorf("decode: got %v, want %v", got, row)
	}
}

func TestPackBitsRetractFromLiteral(t *testing.T) {
	// A repeated byte inside a literal packet retracts the previous
	// byte: the literal flushes one short and a repeat run opens over
	// the pair. This packet layout matches Photoshop's encoder.
	row := []byte{5, 5, 65, 3, 3, 3}
	enc := encodeRow(t, row)
	want := []byte{
		0xFF, 5, // run of 2
		0x00, 65, // literal of 1 after retraction
		0xFE, 3, // run of 3
	}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode: got % X, want % X", enc, want)
	}
	if got := decodeRow(t, enc, len(row)); !bytes.Equal(got, row) {
		t.Errorf("decode: got %v, want %v", got, row)
	}
}

func TestPackBitsMaxRun(t *testing.T) {
	// 200 identical bytes: a full 128 run, then a 72 run.
	row := bytes.Repeat([]byte{9}, 200)
	enc := encodeRow(t, row)
	want := []byte{0x81, 9, 0xB9, 9}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode: got % X, want % X", enc, want)
	}
	if got := decodeRow(t, enc, 200); !bytes.Equal(got, row) {
		t.Error("decode mismatch")
	}
}

func TestPackBitsMaxLiteral(t *testing.T) {
	// 200 distinct bytes: a full 128 literal, then a 72 literal.
	row := make([]byte, 200)
	for i := range row {
		row[i] = byte(i)
	}
	enc := encodeRow(t, row)
	if enc[0] != 0x7F {
		t.Fatalf("first header: got %#x, want 0x7F", enc[0])
	}
	if enc[129] != 0x47 {
		t.Fatalf("second header: got %#x, want 0x47", enc[129])
	}
	if got := decodeRow(t, enc, 200); !bytes.Equal(got, row) {
		t.Error("decode mismatch")
	}
}

func TestPackBitsDecodeNoOpHeader(t *testing.T) {
	// Header 128 is skipped without consuming payload.
	got := decodeRow(t, []byte{0x80, 0xFD, 0x42}, 4)
	want := []byte{0x42, 0x42, 0x42, 0x42}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPackBitsDecodeCorrupt(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		size int
	}{
		{"empty stream", nil, 3},
		{"literal overruns source", []byte{0x05, 1, 2}, 6},
		{"run overruns dest", []byte{0xFC, 7}, 3},
		{"missing run byte", []byte{0xFC}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := packBitsDecodeRow(make([]byte, tt.size), tt.src)
			if !errors.Is(err, ErrCorruptData) {
				t.Errorf("expected ErrCorruptData, got %v", err)
			}
		})
	}
}

// --- RLE Codec Tests ---

func TestRLECodecRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		depth      int
		wideCounts bool
	}{
		{"8-bit small", 7, 5, 8, false},
		{"8-bit wide row", 300, 4, 8, false},
		{"1-bit packed", 20, 6, 1, false},
		{"psb wide counts", 16, 16, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect := Rect{Bottom: int32(tt.h), Right: int32(tt.w)}
			raw := make([]byte, rawSize(rect, tt.depth))
			for i := range raw {
				raw[i] = uint8((i*17 + i/31) % 256)
			}
			c := rleCodec{wideCounts: tt.wideCounts}
			enc, err := c.Encode(raw, rect, tt.depth)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := c.Decode(enc, rect, tt.depth)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestRLECodecRowTable(t *testing.T) {
	// Two rows of 5 identical bytes each encode to 2 bytes per row;
	// the 16-bit count table comes first.
	rect := Rect{Bottom: 2, Right: 5}
	raw := bytes.Repeat([]byte{7}, 10)
	enc, err := rleCodec{}.Encode(raw, rect, 8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0, 2, 0, 2, 0xFC, 7, 0xFC, 7}
	if !bytes.Equal(enc, want) {
		t.Errorf("got % X, want % X", enc, want)
	}
}

func TestRLECodecZeroArea(t *testing.T) {
	c := rleCodec{}
	enc, err := c.Encode(nil, Rect{}, 8)
	if err != nil || len(enc) != 0 {
		t.Fatalf("Encode empty: %v, %d bytes", err, len(enc))
	}
	dec, err := c.Decode(nil, Rect{}, 8)
	if err != nil || len(dec) != 0 {
		t.Fatalf("Decode empty: %v, %d bytes", err, len(dec))
	}
}

func TestRLECodecTruncatedStream(t *testing.T) {
	rect := Rect{Bottom: 2, Right: 5}
	// Table claims 2 bytes per row but only one row's stream exists.
	src := []byte{0, 2, 0, 2, 0xFC, 7}
	if _, err := (rleCodec{}).Decode(src, rect, 8); !errors.Is(err, ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}

func BenchmarkPackBitsEncode(b *testing.B) {
	row := make([]byte, 4096)
	for i := range row {
		row[i] = uint8((i / 7) % 256)
	}
	b.SetBytes(int64(len(row)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e := packBitsEncoder{}
		e.encodeRow(row)
	}
}

func BenchmarkPackBitsDecode(b *testing.B) {
	row := make([]byte, 4096)
	for i := range row {
		row[i] = uint8((i / 7) % 256)
	}
	e := packBitsEncoder{}
	e.encodeRow(row)
	dst := make([]byte, len(row))
	b.SetBytes(int64(len(row)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := packBitsDecodeRow(dst, e.out); err != nil {
			b.Fatal(err)
		}
	}
}
